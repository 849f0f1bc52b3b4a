package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvp-joe/codesweep/internal/lang"
)

var (
	// ErrNoRoots indicates no monitored root directories
	ErrNoRoots = errors.New("no scan roots")

	// ErrInvalidWorkers indicates an invalid extraction pool size
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidLanguages indicates a bad extension->language table
	ErrInvalidLanguages = errors.New("invalid language table")

	// ErrInvalidMode indicates an unsupported import rewrite mode
	ErrInvalidMode = errors.New("invalid rewrite mode")

	// ErrInvalidUndoDepth indicates an invalid undo history bound
	ErrInvalidUndoDepth = errors.New("invalid undo depth")

	// ErrEmptyLocation indicates a missing storage location
	ErrEmptyLocation = errors.New("empty storage location")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateScan(&cfg.Scan); err != nil {
		errs = append(errs, err)
	}
	if err := validateMutate(&cfg.Mutate); err != nil {
		errs = append(errs, err)
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateScan(cfg *ScanConfig) error {
	var errs []error

	if len(cfg.Roots) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one root directory is required", ErrNoRoots))
	}
	for _, root := range cfg.Roots {
		if strings.TrimSpace(root) == "" {
			errs = append(errs, fmt.Errorf("%w: blank root directory", ErrNoRoots))
		}
	}

	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	// The classifier constructor rejects unknown tags, duplicate
	// extensions, and malformed entries.
	if _, err := lang.NewClassifier(cfg.Languages); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidLanguages, err))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateMutate(cfg *MutateConfig) error {
	var errs []error

	mode := strings.ToLower(cfg.Mode)
	if mode != "comment" && mode != "remove" {
		errs = append(errs, fmt.Errorf("%w: must be 'comment' or 'remove', got '%s'", ErrInvalidMode, cfg.Mode))
	}

	if cfg.UndoDepth <= 0 {
		errs = append(errs, fmt.Errorf("%w: undo_depth must be positive, got %d", ErrInvalidUndoDepth, cfg.UndoDepth))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateStorage(cfg *StorageConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.CacheLocation) == "" {
		errs = append(errs, fmt.Errorf("%w: cache_location is required", ErrEmptyLocation))
	}
	if strings.TrimSpace(cfg.SnapshotLocation) == "" {
		errs = append(errs, fmt.Errorf("%w: snapshot_location is required", ErrEmptyLocation))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
