// Package orchestrator drives the session lifecycle: it validates workflow
// descriptions, provisions ephemeral services around the computation,
// launches step instances, and tears everything down again.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
	"github.com/hpcwfm/wfm/internal/workflow"
)

// Orchestrator coordinates storage, the job manager, the resource manager
// and the ephemeral-service plugins.
type Orchestrator struct {
	store     interfaces.StorageManager
	jm        interfaces.JobManager
	rm        interfaces.ResourceManager
	registry  interfaces.ServiceRegistry
	validator *workflow.Validator
	cfg       *common.Config
	logger    arbor.ILogger
}

// New creates the orchestrator
func New(store interfaces.StorageManager, jm interfaces.JobManager, rm interfaces.ResourceManager,
	registry interfaces.ServiceRegistry, validator *workflow.Validator, cfg *common.Config, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		jm:        jm,
		rm:        rm,
		registry:  registry,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// StartSessionRequest carries the inputs of a session start
type StartSessionRequest struct {
	SessionName string
	User        string
	// FileName names the workflow description in error details only.
	FileName string
	// Description is the raw workflow description text.
	Description string
	// Variables are the command-line substitution values.
	Variables map[string]string
	// Synchronous blocks until every service is provisioned.
	Synchronous bool
}

// StartSession validates the workflow description, provisions the ephemeral
// services its steps use and records the session with its step descriptions.
// On any failure everything already provisioned is rolled back.
func (o *Orchestrator) StartSession(ctx context.Context, req StartSessionRequest) (*models.Session, error) {
	ctx = models.WithCorrelationID(ctx, uuid.NewString())

	if err := workflow.ValidateName("session", req.SessionName); err != nil {
		return nil, err
	}

	predefined := map[string]string{workflow.VarSession: req.SessionName}
	text, err := workflow.Substitute(req.Description, predefined, req.Variables)
	if err != nil {
		return nil, err
	}
	if residual := workflow.ResidualReferences(text); len(residual) > 0 {
		return nil, fmt.Errorf("%w: workflow description %s has unresolved variables %v",
			models.ErrValidation, req.FileName, residual)
	}

	desc, err := o.validator.Validate(req.FileName, text)
	if err != nil {
		return nil, err
	}

	for _, decl := range desc.Services {
		plugin, err := o.registry.ForKind(decl.Type)
		if err != nil {
			return nil, err
		}
		if err := plugin.PrepareAttributes(decl); err != nil {
			return nil, err
		}
	}

	session := &models.Session{
		Name:         req.SessionName,
		WorkflowName: desc.Workflow.Name,
		User:         req.User,
		StartTime:    time.Now(),
		Status:       models.SessionStatusStarting,
	}
	if err := o.store.Sessions().Add(ctx, session); err != nil {
		return nil, err
	}

	services, err := o.provisionServices(ctx, session, desc, req.Synchronous)
	if err != nil {
		o.rollbackSession(ctx, session, services)
		return nil, err
	}

	byName := make(map[string]*models.Service, len(services))
	for _, svc := range services {
		byName[svc.Name] = svc
	}
	for _, step := range desc.Steps {
		stepd := &models.StepDescription{
			SessionID: session.ID,
			ServiceID: models.NoService,
			Name:      step.Name,
			Command:   step.Command,
		}
		if len(step.Services) == 1 {
			resolved := workflow.ServiceName(session.User, session.Name, step.Services[0].Name)
			if svc := byName[resolved]; svc != nil {
				stepd.ServiceID = svc.ID
			}
		}
		if err := o.store.Steps().AddDescription(ctx, stepd); err != nil {
			o.rollbackSession(ctx, session, services)
			return nil, err
		}
	}

	// An asynchronous start leaves the session STARTING; the reconciler
	// promotes it once every service is allocated.
	if req.Synchronous {
		session.Status = models.SessionStatusActive
		if err := o.store.Sessions().Update(ctx, session); err != nil {
			o.rollbackSession(ctx, session, services)
			return nil, err
		}
	}

	o.logger.Info().
		Str("session", session.Name).
		Str("workflow", session.WorkflowName).
		Str("user", session.User).
		Int("services", len(services)).
		Int("steps", len(desc.Steps)).
		Msg("Session started")
	return session, nil
}

// provisionServices reserves, locks and starts every service used by at
// least one step, in declaration order. A partial slice is returned with the
// error so the caller can roll back.
func (o *Orchestrator) provisionServices(ctx context.Context, session *models.Session, desc *models.WorkflowDescription, synchronous bool) ([]*models.Service, error) {
	runID := session.RunID()
	var services []*models.Service

	used := make(map[string]bool)
	for _, name := range desc.UsedServiceNames() {
		used[name] = true
	}

	for _, decl := range desc.Services {
		if !used[decl.Name] {
			o.logger.Debug().Str("service", decl.Name).Msg("Service not used by any step, skipped")
			continue
		}
		svc := buildService(session, decl)

		plugin, err := o.registry.ForKind(decl.Type)
		if err != nil {
			return services, err
		}

		// Namespace lease first: all-or-nothing admission for the session.
		if svc.Namespace != "" {
			if err := o.store.Locks().Acquire(ctx, svc.Namespace, svc.Name); err != nil {
				return services, err
			}
		}

		reservation, err := plugin.FillReservation(svc, session.User)
		if err == nil && reservation != nil {
			err = o.rm.Reserve(ctx, reservation)
		}
		if err != nil {
			o.releaseLock(ctx, svc)
			return services, err
		}

		if synchronous || decl.Type == models.ServiceKindNone {
			err = plugin.StartSync(ctx, svc, session.WorkflowName, runID)
			svc.Status = models.ServiceStatusAllocated
			svc.JobID = models.NoJobDependency
		} else {
			var jobID int64
			jobID, err = plugin.StartAsync(ctx, svc, session.WorkflowName, runID)
			svc.Status = models.ServiceStatusWaiting
			svc.JobID = jobID
		}
		if err != nil {
			o.releaseLock(ctx, svc)
			return services, err
		}

		svc.StartTime = time.Now()
		if err := o.store.Services().Add(ctx, svc); err != nil {
			o.releaseLock(ctx, svc)
			return services, err
		}
		services = append(services, svc)
	}

	return services, nil
}

// rollbackSession undoes a partially started session: provisioned services
// are stopped and removed in reverse order, then the session row goes away.
func (o *Orchestrator) rollbackSession(ctx context.Context, session *models.Session, services []*models.Service) {
	runID := session.RunID()
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		plugin, err := o.registry.ForKind(svc.Kind)
		if err == nil && svc.Kind != models.ServiceKindNone {
			if err := plugin.StopSync(ctx, svc.Name, svc.JobID, svc.Location, session.WorkflowName, runID); err != nil {
				o.logger.Warn().Err(err).Str("service", svc.Name).Msg("Rollback stop failed")
			}
			if err := plugin.CleanupTempFiles(svc.Name); err != nil {
				o.logger.Warn().Err(err).Str("service", svc.Name).Msg("Rollback cleanup failed")
			}
		}
		o.releaseLock(ctx, svc)
		if err := o.store.Services().Delete(ctx, svc.ID); err != nil {
			o.logger.Warn().Err(err).Str("service", svc.Name).Msg("Rollback delete failed")
		}
	}

	stepds, err := o.store.Steps().GetDescriptionsBySession(ctx, session.ID)
	if err == nil {
		for _, stepd := range stepds {
			if err := o.store.Steps().DeleteDescription(ctx, stepd.ID); err != nil {
				o.logger.Warn().Err(err).Str("step", stepd.Name).Msg("Rollback delete failed")
			}
		}
	}

	if err := o.store.Sessions().Delete(ctx, session.ID); err != nil {
		o.logger.Warn().Err(err).Str("session", session.Name).Msg("Rollback delete failed")
	}
	o.logger.Info().Str("session", session.Name).Msg("Session rolled back")
}

func (o *Orchestrator) releaseLock(ctx context.Context, svc *models.Service) {
	if svc.Namespace == "" {
		return
	}
	if err := o.store.Locks().Release(ctx, svc.Namespace, svc.Name); err != nil {
		o.logger.Warn().Err(err).Str("namespace", svc.Namespace).Msg("Lock release failed")
	}
}

// buildService maps a declared service onto its session-scoped row
func buildService(session *models.Session, decl *models.WorkflowService) *models.Service {
	dataNodes := 1
	if v := decl.Attributes["datanodes"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			dataNodes = n
		}
	}
	return &models.Service{
		SessionID:   session.ID,
		Name:        workflow.ServiceName(session.User, session.Name, decl.Name),
		Kind:        decl.Type,
		Location:    decl.Attributes["location"],
		Targets:     decl.Attributes["targets"],
		Flavor:      decl.Attributes["flavor"],
		Namespace:   decl.Attributes["namespace"],
		Mountpoint:  decl.Attributes["mountpoint"],
		StorageSize: decl.Attributes["storagesize"],
		DataNodes:   dataNodes,
		JobID:       models.NoJobDependency,
	}
}

// StopSessionRequest carries the inputs of a session stop
type StopSessionRequest struct {
	SessionName  string
	WorkflowName string
	// Forced cancels running step instances before the teardown; a graceful
	// stop refuses sessions with active steps.
	Forced bool
	// Synchronous blocks until every service is torn down; otherwise the
	// reconciler completes the stop in the background.
	Synchronous bool
}

// StopSession tears down the session's services. A graceful stop is refused
// while step instances are active; a forced stop cancels them first.
func (o *Orchestrator) StopSession(ctx context.Context, req StopSessionRequest) (*models.Session, error) {
	ctx = models.WithCorrelationID(ctx, uuid.NewString())

	session, err := o.resolveSession(ctx, req.SessionName, req.WorkflowName)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusStopping && !req.Forced {
		return nil, fmt.Errorf("%w: session %s is already stopping", models.ErrState, session.Name)
	}
	// A TEARDOWN session falls through: re-entry resumes the teardown from
	// the services that remained non-stopped.

	// STOPPING fences concurrent step starts before the steps are examined.
	session.Status = models.SessionStatusStopping
	if err := o.store.Sessions().Update(ctx, session); err != nil {
		return nil, err
	}

	active, err := o.activeInstances(ctx, session)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 && !req.Forced {
		o.markTeardown(ctx, session)
		return nil, fmt.Errorf("%w: %d steps not yet completed", models.ErrState, len(active))
	}
	for _, instance := range active {
		if err := o.jm.Cancel(ctx, instance.JobID); err != nil {
			o.markTeardown(ctx, session)
			return nil, fmt.Errorf("failed to cancel step %s: %w", instance.InstanceName, err)
		}
		instance.Status = models.StepStatusStopping
		if err := o.store.Steps().UpdateInstance(ctx, instance); err != nil {
			return nil, err
		}
	}

	services, err := o.store.Services().GetBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	runID := session.RunID()
	for _, svc := range services {
		if !svc.IsStoppable() {
			continue
		}
		plugin, err := o.registry.ForKind(svc.Kind)
		if err != nil {
			return nil, err
		}

		if req.Synchronous {
			if err := plugin.StopSync(ctx, svc.Name, svc.JobID, svc.Location, session.WorkflowName, runID); err != nil {
				o.markTeardown(ctx, session)
				return nil, err
			}
			o.finalizeService(ctx, session, svc, plugin)
		} else {
			stopJobID, err := plugin.StopAsync(ctx, svc.Name, svc.JobID, svc.Location, session.WorkflowName, runID)
			if err != nil {
				o.markTeardown(ctx, session)
				return nil, err
			}
			svc.Status = models.ServiceStatusStopping
			svc.StopJobID = stopJobID
			if err := o.store.Services().Update(ctx, svc); err != nil {
				return nil, err
			}
		}
	}

	if req.Synchronous {
		o.finalizeSession(ctx, session)
	}

	o.logger.Info().
		Str("session", session.Name).
		Bool("forced", req.Forced).
		Bool("synchronous", req.Synchronous).
		Msg("Session stop initiated")
	return session, nil
}

// markTeardown flags a session whose stop protocol failed midway; a retried
// stop resumes from the services that remained non-stopped.
func (o *Orchestrator) markTeardown(ctx context.Context, session *models.Session) {
	session.Status = models.SessionStatusTeardown
	if err := o.store.Sessions().Update(ctx, session); err != nil {
		o.logger.Warn().Err(err).Str("session", session.Name).Msg("Teardown mark failed")
	}
}

// finalizeService marks one service stopped and drops its lease and files
func (o *Orchestrator) finalizeService(ctx context.Context, session *models.Session, svc *models.Service, plugin interfaces.EphemeralService) {
	svc.Status = models.ServiceStatusStopped
	svc.EndTime = time.Now()
	if err := o.store.Services().Update(ctx, svc); err != nil {
		o.logger.Warn().Err(err).Str("service", svc.Name).Msg("Service finalize failed")
	}
	if err := plugin.CleanupTempFiles(svc.Name); err != nil {
		o.logger.Warn().Err(err).Str("service", svc.Name).Msg("Temp file cleanup failed")
	}
	o.releaseLock(ctx, svc)
}

// finalizeSession concludes a session whose services are all down: it is
// marked stopped and its rows are removed.
func (o *Orchestrator) finalizeSession(ctx context.Context, session *models.Session) {
	session.Status = models.SessionStatusStopped
	session.EndTime = time.Now()
	if err := o.store.Sessions().Update(ctx, session); err != nil {
		o.logger.Warn().Err(err).Str("session", session.Name).Msg("Session finalize failed")
	}
	o.cleanupSession(ctx, session)
	o.logger.Info().Str("session", session.Name).Msg("Session stopped")
}

// cleanupSession removes every row of a stopped session: services with their
// temp files and leases, step instances, step descriptions, then the session
// itself.
func (o *Orchestrator) cleanupSession(ctx context.Context, session *models.Session) {
	services, err := o.store.Services().GetBySession(ctx, session.ID)
	if err != nil {
		o.logger.Warn().Err(err).Str("session", session.Name).Msg("Cleanup service lookup failed")
	}
	for _, svc := range services {
		if plugin, err := o.registry.ForKind(svc.Kind); err == nil {
			if err := plugin.CleanupTempFiles(svc.Name); err != nil {
				o.logger.Warn().Err(err).Str("service", svc.Name).Msg("Temp file cleanup failed")
			}
		}
		o.releaseLock(ctx, svc)
		if err := o.store.Services().Delete(ctx, svc.ID); err != nil {
			o.logger.Warn().Err(err).Str("service", svc.Name).Msg("Service cleanup failed")
		}
	}

	stepds, err := o.store.Steps().GetDescriptionsBySession(ctx, session.ID)
	if err != nil {
		o.logger.Warn().Err(err).Str("session", session.Name).Msg("Cleanup step lookup failed")
	}
	for _, stepd := range stepds {
		instances, err := o.store.Steps().GetInstancesByDescription(ctx, stepd.ID)
		if err != nil {
			o.logger.Warn().Err(err).Str("step", stepd.Name).Msg("Cleanup instance lookup failed")
		}
		for _, instance := range instances {
			if err := o.store.Steps().DeleteInstance(ctx, instance.ID); err != nil {
				o.logger.Warn().Err(err).Str("instance", instance.InstanceName).Msg("Instance cleanup failed")
			}
		}
		if err := o.store.Steps().DeleteDescription(ctx, stepd.ID); err != nil {
			o.logger.Warn().Err(err).Str("step", stepd.Name).Msg("Step cleanup failed")
		}
	}

	if err := o.store.Sessions().Delete(ctx, session.ID); err != nil {
		o.logger.Warn().Err(err).Str("session", session.Name).Msg("Session cleanup failed")
	}
}

// activeInstances returns the step instances of the session that still hold
// a live batch job, judged with the stopping combination rules.
func (o *Orchestrator) activeInstances(ctx context.Context, session *models.Session) ([]*models.StepInstance, error) {
	stepds, err := o.store.Steps().GetDescriptionsBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	var active []*models.StepInstance
	for _, stepd := range stepds {
		instances, err := o.store.Steps().GetInstancesByDescription(ctx, stepd.ID)
		if err != nil {
			return nil, err
		}
		for _, instance := range instances {
			if instance.Status == models.StepStatusStopped {
				continue
			}
			if instance.JobID == 0 {
				continue
			}
			raw, err := o.jm.JobState(ctx, instance.JobID)
			if err != nil {
				raw = ""
			}
			if o.jm.CombineForStopping(raw) != string(models.StepStatusStopped) {
				active = append(active, instance)
			}
		}
	}
	return active, nil
}

// resolveSession addresses one session by name, optionally narrowed to a
// workflow. Several live sessions sharing the name is an error the caller
// resolves by naming the workflow.
func (o *Orchestrator) resolveSession(ctx context.Context, name, workflowName string) (*models.Session, error) {
	sessions, err := o.store.Sessions().GetByName(ctx, name, workflowName)
	if err != nil {
		return nil, err
	}

	var live []*models.Session
	for _, s := range sessions {
		if s.Status != models.SessionStatusStopped {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil, fmt.Errorf("%w: session %s not found", models.ErrState, name)
	}
	if len(live) > 1 {
		return nil, fmt.Errorf("%w: session name %s is ambiguous across workflows, name the workflow", models.ErrState, name)
	}
	return live[0], nil
}

// AccessSession builds the shell command a user pastes to enter an
// interactive allocation using one of the session's services.
func (o *Orchestrator) AccessSession(ctx context.Context, sessionName, serviceName string) (string, error) {
	session, err := o.resolveSession(ctx, sessionName, "")
	if err != nil {
		return "", err
	}

	services, err := o.store.Services().GetBySession(ctx, session.ID)
	if err != nil {
		return "", err
	}
	if len(services) == 0 {
		return "", fmt.Errorf("%w: session %s has no services", models.ErrState, session.Name)
	}

	// The first allocated candidate wins
	var target *models.Service
	for _, svc := range services {
		if serviceName != "" && svc.Name != workflow.ServiceName(session.User, session.Name, serviceName) && svc.Name != serviceName {
			continue
		}
		if svc.IsUsable() {
			target = svc
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("%w: session %s has no allocated service named %s", models.ErrState, session.Name, serviceName)
	}

	plugin, err := o.registry.ForKind(target.Kind)
	if err != nil {
		return "", err
	}
	return plugin.UseCommand(target.Name, target.Location)
}

// StartStepRequest carries the inputs of a step launch
type StartStepRequest struct {
	SessionName  string
	WorkflowName string
	StepName     string
	// Variables are the step-level substitution values for the command.
	Variables map[string]string
}

// StartStep instantiates the step, resolves its command variables and
// submits it against the step's service. The instance is removed again when
// the submission fails.
func (o *Orchestrator) StartStep(ctx context.Context, req StartStepRequest) (*models.StepInstance, error) {
	ctx = models.WithCorrelationID(ctx, uuid.NewString())

	session, err := o.resolveSession(ctx, req.SessionName, req.WorkflowName)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusActive {
		// One convergence attempt before refusing: an asynchronous start may
		// have completed since the last read.
		if err := o.reconcileSession(ctx, session); err != nil {
			o.logger.Warn().Err(err).Str("session", session.Name).Msg("Reconcile before step start failed")
		}
		if session.Status != models.SessionStatusActive {
			return nil, fmt.Errorf("%w: session %s is %s, steps need an active session", models.ErrState, session.Name, session.Status)
		}
	}

	services, err := o.store.Services().GetBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	for _, svc := range services {
		if !svc.IsUsable() {
			return nil, fmt.Errorf("%w: some services are not allocated", models.ErrState)
		}
	}

	stepd, err := o.store.Steps().GetDescriptionByName(ctx, session.ID, req.StepName)
	if err != nil {
		return nil, err
	}

	predefined := map[string]string{
		workflow.VarSession: session.Name,
		workflow.VarStep:    stepd.Name,
	}
	command, err := workflow.Substitute(stepd.Command, predefined, req.Variables)
	if err != nil {
		return nil, err
	}
	if residual := workflow.References(command); len(residual) > 0 {
		return nil, fmt.Errorf("%w: step %s command has unresolved variables %v", models.ErrValidation, stepd.Name, residual)
	}

	var svc *models.Service
	if stepd.ServiceID != models.NoService {
		for _, candidate := range services {
			if candidate.ID == stepd.ServiceID {
				svc = candidate
				break
			}
		}
		if svc == nil {
			return nil, fmt.Errorf("%w: step %s references a removed service", models.ErrState, stepd.Name)
		}
	}

	instance := &models.StepInstance{
		StepDescriptionID: stepd.ID,
		StartTime:         time.Now(),
		Status:            models.StepStatusStarting,
		Command:           command,
	}
	// Instance indices start at 1.
	nameFor := func(index int) string {
		return workflow.StepInstanceName(session.User, session.Name, stepd.Name, index+1)
	}
	if err := o.store.Steps().AddInstance(ctx, instance, nameFor); err != nil {
		return nil, err
	}

	kind := models.ServiceKindNone
	var pluginSvc *models.Service
	if svc != nil && svc.Kind != models.ServiceKindNone {
		kind = svc.Kind
		pluginSvc = svc
	}
	plugin, err := o.registry.ForKind(kind)
	if err != nil {
		o.discardInstance(ctx, instance)
		return nil, err
	}

	opts := models.JobOptions{
		Partition:    o.cfg.Workflow.DefaultPartition,
		Dependency:   models.NoJobDependency,
		WorkflowName: session.WorkflowName,
		RunID:        session.RunID(),
	}
	jobID, err := plugin.SubmitStep(ctx, pluginSvc, instance, opts)
	if err != nil {
		o.discardInstance(ctx, instance)
		return nil, err
	}

	instance.JobID = jobID
	if err := o.store.Steps().UpdateInstance(ctx, instance); err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("session", session.Name).
		Str("step", stepd.Name).
		Str("instance", instance.InstanceName).
		Int64("jobid", jobID).
		Msg("Step started")
	return instance, nil
}

func (o *Orchestrator) discardInstance(ctx context.Context, instance *models.StepInstance) {
	if err := o.store.Steps().DeleteInstance(ctx, instance.ID); err != nil {
		o.logger.Warn().Err(err).Str("instance", instance.InstanceName).Msg("Instance discard failed")
	}
}

// UpdateProgress records a free-form progress indication for a step
// instance, addressed by instance name or, when name is empty, by job id.
// The updated instance is returned so callers can report its name.
func (o *Orchestrator) UpdateProgress(ctx context.Context, instanceName string, jobID int64, progress string) (*models.StepInstance, error) {
	var instance *models.StepInstance
	if instanceName != "" {
		found, err := o.store.Steps().GetInstanceByName(ctx, instanceName)
		if err != nil {
			return nil, err
		}
		instance = found
	} else {
		instances, err := o.store.Steps().GetInstancesByJobID(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if len(instances) == 0 {
			return nil, fmt.Errorf("%w: no step instance for job %d", models.ErrState, jobID)
		}
		if len(instances) > 1 {
			return nil, fmt.Errorf("%w: job %d matches %d step instances", models.ErrState, jobID, len(instances))
		}
		instance = instances[0]
	}

	instance.Progress = progress
	if err := o.store.Steps().UpdateInstance(ctx, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// StepStatuses returns the display views of every instance in the session,
// raw heterogeneous statuses collapsed with the display rules.
func (o *Orchestrator) StepStatuses(ctx context.Context, sessionName string) ([]*models.StepStatusView, error) {
	session, err := o.resolveSession(ctx, sessionName, "")
	if err != nil {
		return nil, err
	}

	stepds, err := o.store.Steps().GetDescriptionsBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	var views []*models.StepStatusView
	for _, stepd := range stepds {
		instances, err := o.store.Steps().GetInstancesByDescription(ctx, stepd.ID)
		if err != nil {
			return nil, err
		}
		for _, instance := range instances {
			combined := o.jm.CombineForDisplay(instance.RawJobStatus)
			views = append(views, &models.StepStatusView{
				ID:             instance.ID,
				InstanceName:   instance.InstanceName,
				StepName:       stepd.Name,
				SessionName:    session.Name,
				Status:         instance.Status,
				CombinedStatus: combined,
				Progress:       instance.Progress,
				JobID:          instance.JobID,
				StartTime:      instance.StartTime,
			})
		}
	}
	return views, nil
}
