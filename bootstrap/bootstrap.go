// Package bootstrap renders a container deployment bundle for taskdeck.
package bootstrap

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"pkt.systems/taskdeck/internal/appconfig"
	"pkt.systems/taskdeck/internal/version"
)

// Files represents generated bootstrap artifacts.
type Files struct {
	ConfigYAML    []byte
	ComposeYAML   []byte
	PodmanYAML    []byte
	Containerfile []byte
}

// Options controls optional bootstrap behaviors.
type Options struct {
	ImageTag  string
	Overrides []ConfigOverride
}

// BundlePaths lists output locations for generated artifacts.
type BundlePaths struct {
	ConfigPath    string
	ComposePath   string
	PodmanPath    string
	Containerfile string
	EnvPath       string
	StateDir      string
}

const (
	containerConfigName = "config-for-container.yaml"
	composeEnvName      = ".env"
	containerStateDir   = "/taskdeck/state"
	containerConfigPath = "/taskdeck/config.yaml"
	defaultServerImage  = "docker.io/pktsystems/taskdeck"
	defaultPort         = 27490
)

// ConfigOverride sets a dotted config path in the container config.
type ConfigOverride struct {
	Path  string
	Value any
}

// ParseOverride parses a key=value pair such as "app_mode=saas". Values
// are decoded as YAML scalars so numbers and booleans keep their type.
func ParseOverride(raw string) (ConfigOverride, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return ConfigOverride{}, fmt.Errorf("invalid override %q (want path=value)", raw)
	}
	var decoded any
	if err := yaml.Unmarshal([]byte(value), &decoded); err != nil || decoded == nil {
		decoded = value
	}
	return ConfigOverride{Path: key, Value: decoded}, nil
}

type templateData struct {
	ServerImage         string
	Port                int
	HostStateDir        string
	HostConfigPath      string
	ContainerStateDir   string
	ContainerConfigPath string
}

// DefaultFiles renders the bundle for a deployment rooted at rootDir.
func DefaultFiles(rootDir string, opts Options) (Files, error) {
	cfg, err := ContainerConfig(opts.Overrides)
	if err != nil {
		return Files{}, err
	}
	configYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return Files{}, err
	}
	data := templateData{
		ServerImage:         tagImage(defaultServerImage, resolveImageTag(opts.ImageTag)),
		Port:                listenPort(cfg.HTTP.Addr),
		HostStateDir:        filepath.Join(rootDir, "state"),
		HostConfigPath:      filepath.Join(rootDir, containerConfigName),
		ContainerStateDir:   containerStateDir,
		ContainerConfigPath: containerConfigPath,
	}
	compose, err := renderTemplate("templates/docker-compose.yaml.tmpl", data)
	if err != nil {
		return Files{}, err
	}
	podman, err := renderTemplate("templates/podman.yaml.tmpl", data)
	if err != nil {
		return Files{}, err
	}
	containerfile, err := renderTemplate("templates/Containerfile.tmpl", data)
	if err != nil {
		return Files{}, err
	}
	return Files{
		ConfigYAML:    configYAML,
		ComposeYAML:   compose,
		PodmanYAML:    podman,
		Containerfile: containerfile,
	}, nil
}

// ContainerConfig returns the default config with container paths and
// overrides applied.
func ContainerConfig(overrides []ConfigOverride) (appconfig.Config, error) {
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		return appconfig.Config{}, err
	}
	cfg.ConfigVersion = appconfig.CurrentConfigVersion
	cfg.StateDir = containerStateDir
	cfg.State.Path = ""
	cfg.Logging.File = ""
	return applyOverrides(cfg, overrides)
}

// WriteBootstrap renders and writes the bundle into outputDir.
func WriteBootstrap(outputDir string, overwrite bool, opts Options) (BundlePaths, error) {
	if strings.TrimSpace(outputDir) == "" {
		return BundlePaths{}, fmt.Errorf("output directory is required")
	}
	rootDir, err := filepath.Abs(outputDir)
	if err != nil {
		rootDir = outputDir
	}
	files, err := DefaultFiles(rootDir, opts)
	if err != nil {
		return BundlePaths{}, err
	}
	return WriteFiles(rootDir, files, overwrite)
}

// WriteFiles writes the bootstrap files to the output directory.
func WriteFiles(outputDir string, files Files, overwrite bool) (BundlePaths, error) {
	paths := BundlePaths{
		ConfigPath:    filepath.Join(outputDir, containerConfigName),
		ComposePath:   filepath.Join(outputDir, "docker-compose.yaml"),
		PodmanPath:    filepath.Join(outputDir, "podman.yaml"),
		Containerfile: filepath.Join(outputDir, "Containerfile"),
		EnvPath:       filepath.Join(outputDir, composeEnvName),
		StateDir:      filepath.Join(outputDir, "state"),
	}
	outputs := []struct {
		path string
		data []byte
		mode os.FileMode
	}{
		{paths.ConfigPath, files.ConfigYAML, 0o600},
		{paths.ComposePath, files.ComposeYAML, 0o644},
		{paths.PodmanPath, files.PodmanYAML, 0o644},
		{paths.Containerfile, files.Containerfile, 0o644},
		{paths.EnvPath, composeEnv(), 0o600},
	}
	if !overwrite {
		for _, out := range outputs {
			if _, err := os.Stat(out.path); err == nil {
				return BundlePaths{}, fmt.Errorf("file already exists: %s", out.path)
			}
		}
	}
	if err := os.MkdirAll(paths.StateDir, 0o700); err != nil {
		return BundlePaths{}, err
	}
	for _, out := range outputs {
		if err := os.WriteFile(out.path, out.data, out.mode); err != nil {
			return BundlePaths{}, err
		}
	}
	return paths, nil
}

func composeEnv() []byte {
	return []byte(fmt.Sprintf("UID=%d\nGID=%d\n", os.Getuid(), os.Getgid()))
}

func listenPort(addr string) int {
	_, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return defaultPort
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 {
		return defaultPort
	}
	return n
}

func renderTemplate(name string, data templateData) ([]byte, error) {
	raw, err := readEmbeddedFile(name)
	if err != nil {
		return nil, err
	}
	tpl, err := template.New(filepath.Base(name)).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func applyOverrides(cfg appconfig.Config, overrides []ConfigOverride) (appconfig.Config, error) {
	if len(overrides) == 0 {
		return cfg, nil
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return cfg, err
	}
	for _, override := range overrides {
		if err := setOverrideValue(data, override.Path, override.Value); err != nil {
			return cfg, err
		}
	}
	updated, err := yaml.Marshal(data)
	if err != nil {
		return cfg, err
	}
	var next appconfig.Config
	if err := yaml.Unmarshal(updated, &next); err != nil {
		return cfg, fmt.Errorf("apply overrides: %w", err)
	}
	return next, nil
}

func setOverrideValue(root map[string]any, path string, value any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("config override path is required")
	}
	parts := strings.Split(path, ".")
	node := root
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Errorf("invalid config override path %q", path)
		}
		if i == len(parts)-1 {
			node[part] = value
			return nil
		}
		next, ok := node[part]
		if !ok || next == nil {
			child := map[string]any{}
			node[part] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("config override %q: %q is not a map", path, part)
		}
		node = child
	}
	return nil
}

func resolveImageTag(override string) string {
	if value := strings.TrimSpace(override); value != "" {
		return value
	}
	value := strings.TrimSpace(version.Current())
	if value == "" || value == "(devel)" {
		return "latest"
	}
	return value
}

func tagImage(base, tag string) string {
	base = stripImageTag(base)
	if base == "" {
		return ""
	}
	if strings.TrimSpace(tag) == "" {
		tag = "latest"
	}
	return base + ":" + tag
}

func stripImageTag(image string) string {
	image = strings.TrimSpace(image)
	if image == "" {
		return ""
	}
	if at := strings.LastIndex(image, "@"); at != -1 {
		image = image[:at]
	}
	lastSlash := strings.LastIndex(image, "/")
	lastColon := strings.LastIndex(image, ":")
	if lastColon > lastSlash {
		return image[:lastColon]
	}
	return image
}
