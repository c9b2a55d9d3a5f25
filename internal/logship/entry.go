package logship

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Stack identifies which side of the system emitted an entry.
type Stack string

// Level is the severity of an entry.
type Level string

// Package names the component that emitted an entry.
type Package string

const (
	StackBackend  Stack = "backend"
	StackFrontend Stack = "frontend"
)

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

const (
	PackageCache      Package = "cache"
	PackageController Package = "controller"
	PackageCronJob    Package = "cron_job"
	PackageDB         Package = "db"
	PackageDomain     Package = "domain"
	PackageHandler    Package = "handler"
	PackageRepository Package = "repository"
	PackageRoute      Package = "route"
	PackageService    Package = "service"

	PackageAPI       Package = "api"
	PackageComponent Package = "component"
	PackageHook      Package = "hook"
	PackagePage      Package = "page"
	PackageState     Package = "state"
	PackageStyle     Package = "style"

	PackageAuth       Package = "auth"
	PackageConfig     Package = "config"
	PackageMiddleware Package = "middleware"
	PackageUtils      Package = "utils"
)

var (
	ErrMissingField   = errors.New("missing required fields")
	ErrInvalidStack   = errors.New("invalid stack")
	ErrInvalidLevel   = errors.New("invalid level")
	ErrInvalidPackage = errors.New("invalid package")
)

var levels = map[Level]bool{
	LevelDebug: true,
	LevelInfo:  true,
	LevelWarn:  true,
	LevelError: true,
	LevelFatal: true,
}

var sharedPackages = []Package{PackageAuth, PackageConfig, PackageMiddleware, PackageUtils}

var stackPackages = map[Stack][]Package{
	StackBackend: {
		PackageCache, PackageController, PackageCronJob, PackageDB, PackageDomain,
		PackageHandler, PackageRepository, PackageRoute, PackageService,
	},
	StackFrontend: {
		PackageAPI, PackageComponent, PackageHook, PackagePage, PackageState, PackageStyle,
	},
}

// Entry is the payload accepted by the log collector.
type Entry struct {
	Stack   Stack   `json:"stack"`
	Level   Level   `json:"level"`
	Package Package `json:"package"`
	Message string  `json:"message"`
}

// NewEntry lower-cases stack, level and package and checks them against the collector's vocabulary.
func NewEntry(stack Stack, level Level, pkg Package, message string) (Entry, error) {
	entry := Entry{
		Stack:   Stack(strings.ToLower(string(stack))),
		Level:   Level(strings.ToLower(string(level))),
		Package: Package(strings.ToLower(string(pkg))),
		Message: message,
	}

	return entry, entry.Validate()
}

// Validate reports the first problem with the entry.
func (e Entry) Validate() error {
	if e.Stack == "" || e.Level == "" || e.Package == "" || e.Message == "" {
		return ErrMissingField
	}

	allowed, ok := stackPackages[e.Stack]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStack, e.Stack)
	}

	if !levels[e.Level] {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, e.Level)
	}

	if !slices.Contains(allowed, e.Package) && !slices.Contains(sharedPackages, e.Package) {
		return fmt.Errorf("%w: %q for stack %q", ErrInvalidPackage, e.Package, e.Stack)
	}

	return nil
}
