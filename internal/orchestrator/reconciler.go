package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"github.com/hpcwfm/wfm/internal/models"
)

// Reconcile converges the stored state with the cluster: service statuses
// are probed and step instances pick up their current raw job status.
// Starting sessions are promoted once every service is allocated; stopping
// sessions are finalized and cleaned up once their services are down.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	ctx = models.WithCorrelationID(ctx, uuid.NewString())

	sessions, err := o.store.Sessions().GetAll(ctx, "")
	if err != nil {
		return err
	}

	for _, session := range sessions {
		if session.Status == models.SessionStatusStopped {
			// Rows left behind by an interrupted stop
			o.cleanupSession(ctx, session)
			continue
		}
		if err := o.reconcileSession(ctx, session); err != nil {
			o.logger.Warn().Err(err).Str("session", session.Name).Msg("Reconcile failed")
		}
	}
	return nil
}

func (o *Orchestrator) reconcileSession(ctx context.Context, session *models.Session) error {
	services, err := o.store.Services().GetBySession(ctx, session.ID)
	if err != nil {
		return err
	}

	allDown := true
	allReady := true
	teardown := false
	for _, svc := range services {
		o.reconcileService(ctx, session, svc)
		if svc.Status != models.ServiceStatusStopped && svc.Status != models.ServiceStatusStagedOut {
			allDown = false
		}
		if !svc.IsUsable() {
			allReady = false
		}
		if svc.Status == models.ServiceStatusTeardown {
			teardown = true
		}
	}

	if err := o.reconcileSteps(ctx, session); err != nil {
		return err
	}

	switch {
	case session.Status == models.SessionStatusStarting && allReady:
		session.Status = models.SessionStatusActive
		if err := o.store.Sessions().Update(ctx, session); err != nil {
			return err
		}
		o.logger.Info().Str("session", session.Name).Msg("Session active")
	case session.Status == models.SessionStatusStopping && allDown:
		o.finalizeSession(ctx, session)
	case teardown && session.Status != models.SessionStatusTeardown:
		session.Status = models.SessionStatusTeardown
		if err := o.store.Sessions().Update(ctx, session); err != nil {
			return err
		}
		o.logger.Warn().Str("session", session.Name).Msg("Session entered teardown")
	}
	return nil
}

// reconcileService probes transitional services and applies what the probe
// observed. UNKNOWN leaves the stored status alone.
func (o *Orchestrator) reconcileService(ctx context.Context, session *models.Session, svc *models.Service) {
	switch svc.Status {
	case models.ServiceStatusWaiting, models.ServiceStatusStagingIn,
		models.ServiceStatusStopping, models.ServiceStatusStagingOut:
	default:
		return
	}

	plugin, err := o.registry.ForKind(svc.Kind)
	if err != nil {
		return
	}
	observed, err := plugin.ProbeStatus(ctx, svc)
	if err != nil {
		o.logger.Warn().Err(err).Str("service", svc.Name).Msg("Service probe failed")
		return
	}
	if observed == models.ServiceStatusUnknown || observed == svc.Status {
		return
	}

	o.logger.Debug().
		Str("service", svc.Name).
		Str("from", string(svc.Status)).
		Str("to", string(observed)).
		Msg("Service status observed")

	if observed == models.ServiceStatusStopped {
		o.finalizeService(ctx, session, svc, plugin)
		return
	}
	svc.Status = observed
	if err := o.store.Services().Update(ctx, svc); err != nil {
		o.logger.Warn().Err(err).Str("service", svc.Name).Msg("Service update failed")
	}
}

// reconcileSteps refreshes the raw job status of every live instance. The
// raw string is stored verbatim; an empty answer means the job left the
// queue and the instance is concluded.
func (o *Orchestrator) reconcileSteps(ctx context.Context, session *models.Session) error {
	stepds, err := o.store.Steps().GetDescriptionsBySession(ctx, session.ID)
	if err != nil {
		return err
	}

	for _, stepd := range stepds {
		instances, err := o.store.Steps().GetInstancesByDescription(ctx, stepd.ID)
		if err != nil {
			return err
		}
		for _, instance := range instances {
			if instance.Status == models.StepStatusStopped || instance.JobID == 0 {
				continue
			}

			raw, err := o.jm.JobState(ctx, instance.JobID)
			if err != nil {
				raw = ""
			}

			instance.RawJobStatus = raw
			combined := o.jm.CombineForDisplay(raw)
			status := o.jm.TranslateToWFMStatus(combined)
			if instance.Status != status {
				instance.Status = status
				if status == models.StepStatusStopped {
					instance.StopTime = timeNow()
				}
			}
			if err := o.store.Steps().UpdateInstance(ctx, instance); err != nil {
				o.logger.Warn().Err(err).Str("instance", instance.InstanceName).Msg("Instance update failed")
			}
		}
	}
	return nil
}
