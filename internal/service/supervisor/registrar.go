package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/streamlinelabs/streamline-installer/internal/logger"
	"github.com/streamlinelabs/streamline-installer/internal/service/common"
)

// Registrar hands a ServiceSpec to the host service manager.
type Registrar interface {
	// Register declares the service and returns where the declaration lives.
	Register(ctx context.Context, spec ServiceSpec) (string, error)
	// Unregister stops and removes the service declaration for label.
	Unregister(ctx context.Context, label string) error
}

// Service manager flavours.
const (
	Launchd = "launchd"
	Systemd = "systemd"
)

// unitFileMode is applied to written plist and unit files.
const unitFileMode os.FileMode = 0o644

// ErrUnsupportedOS indicates the current OS has no known service manager.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// UnitFileRegistrar writes a launchd plist or a systemd user unit and
// optionally activates it.
type UnitFileRegistrar struct {
	// Manager is Launchd or Systemd.
	Manager string
	// Dir receives the declaration file.
	Dir string
	// Activate loads and starts the service after writing it.
	Activate bool
	// Runner executes launchctl or systemctl.
	Runner common.CommandRunner
}

// NewUnitFileRegistrar picks the service manager for goos. An empty dir selects
// the per-user default location.
func NewUnitFileRegistrar(goos, dir string, activate bool) (*UnitFileRegistrar, error) {
	manager, err := ManagerFor(goos)
	if err != nil {
		return nil, err
	}

	if dir == "" {
		if dir, err = defaultUnitDir(manager); err != nil {
			return nil, err
		}
	}

	return &UnitFileRegistrar{
		Manager:  manager,
		Dir:      dir,
		Activate: activate,
		Runner:   common.ExecRunner{},
	}, nil
}

// ManagerFor returns the service manager used on goos.
func ManagerFor(goos string) (string, error) {
	osName := strings.ToLower(goos)

	switch {
	case strings.Contains(osName, "darwin"):
		return Launchd, nil
	case strings.Contains(osName, "linux"):
		return Systemd, nil
	default:
		return "", fmt.Errorf("%s: %w", goos, ErrUnsupportedOS)
	}
}

func defaultUnitDir(manager string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}

	if manager == Launchd {
		return filepath.Join(home, "Library", "LaunchAgents"), nil
	}

	return filepath.Join(home, ".config", "systemd", "user"), nil
}

// Path returns the declaration file for label.
func (r *UnitFileRegistrar) Path(label string) string {
	if r.Manager == Launchd {
		return filepath.Join(r.Dir, label+".plist")
	}

	return filepath.Join(r.Dir, label+".service")
}

// Render returns the declaration file contents for spec.
func (r *UnitFileRegistrar) Render(spec ServiceSpec) ([]byte, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	tmpl := systemdTemplate
	if r.Manager == Launchd {
		tmpl = launchdTemplate
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, spec); err != nil {
		return nil, fmt.Errorf("render %s declaration: %w", r.Manager, err)
	}

	return buf.Bytes(), nil
}

// Register implements Registrar.
func (r *UnitFileRegistrar) Register(ctx context.Context, spec ServiceSpec) (string, error) {
	ctx = logger.WithName(ctx, "supervisor")

	data, err := r.Render(spec)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create unit directory: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(spec.LogPath), 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}

	if err = os.MkdirAll(spec.WorkingDir, 0o755); err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}

	path := r.Path(spec.Label)
	if err = os.WriteFile(path, data, unitFileMode); err != nil {
		return "", fmt.Errorf("write service declaration: %w", err)
	}

	logger.InfoKV(ctx, "Service declared", "manager", r.Manager, "path", path, "keep_alive", spec.KeepAlive)

	if !r.Activate {
		return path, nil
	}

	for _, args := range r.activateCommands(spec.Label, path) {
		if _, err = r.Runner.Run(ctx, "", args[0], args[1:]...); err != nil {
			return path, fmt.Errorf("activate service: %w", err)
		}
	}

	logger.InfoKV(ctx, "Service activated", "label", spec.Label)

	return path, nil
}

// Unregister implements Registrar. A missing declaration is not an error.
func (r *UnitFileRegistrar) Unregister(ctx context.Context, label string) error {
	ctx = logger.WithName(ctx, "supervisor")
	path := r.Path(label)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.InfoKV(ctx, "Service is not declared", "path", path)

		return nil
	}

	if r.Activate {
		for _, args := range r.deactivateCommands(label, path) {
			if _, err := r.Runner.Run(ctx, "", args[0], args[1:]...); err != nil {
				logger.WarnKV(ctx, "Service deactivation failed", "label", label, "error", err)
			}
		}
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove service declaration: %w", err)
	}

	logger.InfoKV(ctx, "Service removed", "path", path)

	return nil
}

func (r *UnitFileRegistrar) activateCommands(label, path string) [][]string {
	if r.Manager == Launchd {
		return [][]string{{"launchctl", "load", "-w", path}}
	}

	return [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", "--now", label + ".service"},
	}
}

func (r *UnitFileRegistrar) deactivateCommands(label, path string) [][]string {
	if r.Manager == Launchd {
		return [][]string{{"launchctl", "unload", "-w", path}}
	}

	return [][]string{{"systemctl", "--user", "disable", "--now", label + ".service"}}
}

var templateFuncs = template.FuncMap{
	"xml": template.HTMLEscapeString,
	"exec": func(args []string) string {
		quoted := make([]string, 0, len(args))
		for _, arg := range args {
			if arg == "" || strings.ContainsAny(arg, " \t\"'\\") {
				arg = strconv.Quote(arg)
			}

			quoted = append(quoted, arg)
		}

		return strings.Join(quoted, " ")
	},
}

var launchdTemplate = template.Must(template.New("launchd").Funcs(templateFuncs).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
  <key>Label</key>
  <string>{{ xml .Label }}</string>
  <key>ProgramArguments</key>
  <array>
{{- range .RunCommand }}
    <string>{{ xml . }}</string>
{{- end }}
  </array>
  <key>WorkingDirectory</key>
  <string>{{ xml .WorkingDir }}</string>
  <key>RunAtLoad</key>
  <true/>
  <key>KeepAlive</key>
  <{{ if .KeepAlive }}true{{ else }}false{{ end }}/>
  <key>StandardOutPath</key>
  <string>{{ xml .LogPath }}</string>
  <key>StandardErrorPath</key>
  <string>{{ xml .LogPath }}</string>
</dict>
</plist>
`))

var systemdTemplate = template.Must(template.New("systemd").Funcs(templateFuncs).Parse(`[Unit]
Description=Streamline streaming server ({{ .Label }})
After=network.target

[Service]
Type=simple
ExecStart={{ exec .RunCommand }}
WorkingDirectory={{ .WorkingDir }}
Restart={{ if .KeepAlive }}always{{ else }}no{{ end }}
StandardOutput=append:{{ .LogPath }}
StandardError=append:{{ .LogPath }}

[Install]
WantedBy=default.target
`))
