package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"pkt.systems/taskdeck/internal/appconfig"
)

type podmanSpec struct {
	Spec struct {
		Containers []struct {
			Image string `yaml:"image"`
			Ports []struct {
				HostPort int `yaml:"hostPort"`
			} `yaml:"ports"`
		} `yaml:"containers"`
		Volumes []struct {
			Name     string `yaml:"name"`
			HostPath *struct {
				Path string `yaml:"path"`
				Type string `yaml:"type"`
			} `yaml:"hostPath"`
		} `yaml:"volumes"`
	} `yaml:"spec"`
}

func TestWriteBootstrapPodmanPaths(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	outputDir := t.TempDir()
	paths, err := WriteBootstrap(outputDir, false, Options{ImageTag: "v1.2.3"})
	if err != nil {
		t.Fatalf("WriteBootstrap: %v", err)
	}
	data, err := os.ReadFile(paths.PodmanPath)
	if err != nil {
		t.Fatalf("read podman.yaml: %v", err)
	}
	var spec podmanSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("unmarshal podman.yaml: %v", err)
	}
	hostPaths := make(map[string]string)
	for _, volume := range spec.Spec.Volumes {
		if volume.HostPath != nil {
			hostPaths[volume.Name] = volume.HostPath.Path
		}
	}
	if got := hostPaths["taskdeck-state"]; got != filepath.Join(outputDir, "state") {
		t.Fatalf("unexpected state host path %q", got)
	}
	if got := hostPaths["taskdeck-config"]; got != filepath.Join(outputDir, containerConfigName) {
		t.Fatalf("unexpected config host path %q", got)
	}
	if len(spec.Spec.Containers) != 1 || spec.Spec.Containers[0].Image != defaultServerImage+":v1.2.3" {
		t.Fatalf("unexpected containers %+v", spec.Spec.Containers)
	}
	if ports := spec.Spec.Containers[0].Ports; len(ports) != 1 || ports[0].HostPort != defaultPort {
		t.Fatalf("unexpected ports %+v", ports)
	}
	if info, err := os.Stat(paths.StateDir); err != nil || !info.IsDir() {
		t.Fatalf("expected state dir, err=%v", err)
	}
}

func TestWriteBootstrapRefusesOverwrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	outputDir := t.TempDir()
	if _, err := WriteBootstrap(outputDir, false, Options{}); err != nil {
		t.Fatalf("first WriteBootstrap: %v", err)
	}
	if _, err := WriteBootstrap(outputDir, false, Options{}); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if _, err := WriteBootstrap(outputDir, true, Options{}); err != nil {
		t.Fatalf("overwrite WriteBootstrap: %v", err)
	}
}

func TestContainerConfigLoadsAndAppliesOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	mode, err := ParseOverride("app_mode=saas")
	if err != nil {
		t.Fatalf("ParseOverride: %v", err)
	}
	addr, err := ParseOverride("http.addr=0.0.0.0:8080")
	if err != nil {
		t.Fatalf("ParseOverride: %v", err)
	}
	upload, err := ParseOverride("http.max_upload_mb=16")
	if err != nil {
		t.Fatalf("ParseOverride: %v", err)
	}
	files, err := DefaultFiles("/srv/taskdeck", Options{Overrides: []ConfigOverride{mode, addr, upload}})
	if err != nil {
		t.Fatalf("DefaultFiles: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, files.ConfigYAML, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := appconfig.Load(path)
	if err != nil {
		t.Fatalf("Load generated config: %v", err)
	}
	if cfg.AppMode != "saas" || cfg.HTTP.Addr != "0.0.0.0:8080" || cfg.HTTP.MaxUploadMB != 16 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.StateDir != containerStateDir {
		t.Fatalf("unexpected state dir %q", cfg.StateDir)
	}
	if !strings.Contains(string(files.ComposeYAML), `"8080:8080"`) {
		t.Fatalf("expected compose port mapping:\n%s", files.ComposeYAML)
	}
}

func TestParseOverrideRejectsMissingValue(t *testing.T) {
	if _, err := ParseOverride("app_mode"); err == nil {
		t.Fatal("expected error for missing '='")
	}
	if _, err := ParseOverride("=saas"); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStripImageTag(t *testing.T) {
	cases := map[string]string{
		"docker.io/pktsystems/taskdeck:v1":       "docker.io/pktsystems/taskdeck",
		"localhost:5000/taskdeck":                "localhost:5000/taskdeck",
		"docker.io/pktsystems/taskdeck@sha256:a": "docker.io/pktsystems/taskdeck",
	}
	for in, want := range cases {
		if got := stripImageTag(in); got != want {
			t.Fatalf("stripImageTag(%q) = %q, want %q", in, got, want)
		}
	}
}
