package ephemeral

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/hpcwfm/wfm/internal/models"
)

// Attribute keys shared across service kinds
const (
	attrTargets     = "targets"
	attrFlavor      = "flavor"
	attrNamespace   = "namespace"
	attrMountpoint  = "mountpoint"
	attrStorageSize = "storagesize"
	attrDataNodes   = "datanodes"
	attrLocation    = "location"
	attrDasiConfig  = "dasiconfig"
)

// storageSizePattern admits sizes like 100GB, 2TiB, 512M
var storageSizePattern = regexp.MustCompile(`^[0-9]+[KMGT]i?B?$`)

func validateAbsolutePath(svc *models.WorkflowService, key string) error {
	value := svc.Attributes[key]
	if !filepath.IsAbs(value) {
		return fmt.Errorf("%w: service %s: %s %q must be an absolute path", models.ErrValidation, svc.Name, key, value)
	}
	return nil
}

// validateWritableDir checks that the path is an absolute, existing,
// writable directory.
func validateWritableDir(svc *models.WorkflowService, key string) error {
	if err := validateAbsolutePath(svc, key); err != nil {
		return err
	}
	value := svc.Attributes[key]
	info, err := os.Stat(value)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: service %s: %s %q is not an existing directory", models.ErrValidation, svc.Name, key, value)
	}
	probe := filepath.Join(value, ".wfm-probe-"+svc.Name)
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("%w: service %s: %s %q is not writable", models.ErrValidation, svc.Name, key, value)
	}
	f.Close()
	os.Remove(probe)
	return nil
}

func validateStorageSize(svc *models.WorkflowService) error {
	value := svc.Attributes[attrStorageSize]
	if !storageSizePattern.MatchString(value) {
		return fmt.Errorf("%w: service %s: storagesize %q is malformed", models.ErrValidation, svc.Name, value)
	}
	return nil
}

// validateDataNodes parses the datanodes attribute and enforces the kind's
// upper bound. Absent attribute means one server.
func validateDataNodes(svc *models.WorkflowService, max int) error {
	value, present := svc.Attributes[attrDataNodes]
	if !present {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("%w: service %s: datanodes %q must be a positive integer", models.ErrValidation, svc.Name, value)
	}
	if max > 0 && n > max {
		return fmt.Errorf("%w: service %s: datanodes is limited to %d for %s services", models.ErrValidation, svc.Name, max, svc.Type)
	}
	return nil
}

// validateDistinct enforces a cross-service uniqueness constraint on one
// attribute key over all declared services of a kind.
func validateDistinct(svcs []*models.WorkflowService, key string) error {
	seen := make(map[string]string)
	for _, svc := range svcs {
		value := svc.Attributes[key]
		if value == "" {
			continue
		}
		if holder, dup := seen[value]; dup {
			return fmt.Errorf("%w: services %s and %s share the same %s %q", models.ErrValidation, holder, svc.Name, key, value)
		}
		seen[value] = svc.Name
	}
	return nil
}

// dataNodesOf returns the servers count for a provisioned service
func dataNodesOf(svc *models.Service) int {
	if svc.DataNodes > 0 {
		return svc.DataNodes
	}
	return 1
}
