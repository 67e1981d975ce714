//go:build e2e

package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/network"
	"github.com/goccy/go-yaml"
	"github.com/testcontainers/testcontainers-go"
	tcnetwork "github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/encodeous/canopy/state"
)

const (
	ImageName   = "canopy-debug:latest"
	WaitTimeout = 4 * time.Minute
)

type Harness struct {
	t       *testing.T
	mu      sync.Mutex
	ctx     context.Context
	Network *testcontainers.DockerNetwork
	Nodes   map[string]testcontainers.Container
	Logs    map[string]*nodeLog
	RootDir string
}

func NewHarness(t *testing.T) *Harness {
	ctx := context.Background()
	rootDir, err := findRootDir()
	if err != nil {
		t.Fatal(err)
	}

	newNetwork, err := tcnetwork.New(ctx,
		tcnetwork.WithAttachable(),
		tcnetwork.WithDriver("bridge"),
		tcnetwork.WithIPAM(&network.IPAM{
			Driver: "default",
			Config: []network.IPAMConfig{
				{
					Subnet:  "10.93.0.0/24",
					Gateway: "10.93.0.254",
				},
			},
		}))
	if err != nil {
		t.Fatal(err)
	}
	h := &Harness{
		t:       t,
		ctx:     ctx,
		Network: newNetwork,
		Nodes:   make(map[string]testcontainers.Container),
		Logs:    make(map[string]*nodeLog),
		RootDir: rootDir,
	}
	t.Cleanup(func() {
		h.Cleanup()
	})
	return h
}

// nodeLog accumulates a container's output.
type nodeLog struct {
	mu sync.Mutex
	b  strings.Builder
}

func (l *nodeLog) Accept(entry testcontainers.Log) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.b.Write(entry.Content)
}

func (l *nodeLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func (h *Harness) StartNode(name string, ip string, centralConfigPath, nodeConfigPath string) testcontainers.Container {
	h.t.Logf("Starting node %s at %s", name, ip)
	log := &nodeLog{}
	req := testcontainers.ContainerRequest{
		Image:    ImageName,
		Networks: []string{h.Network.Name},
		NetworkAliases: map[string][]string{
			h.Network.Name: {name},
		},
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      centralConfigPath,
				ContainerFilePath: "/app/config/central.yaml",
				FileMode:          0644,
			},
			{
				HostFilePath:      nodeConfigPath,
				ContainerFilePath: "/app/config/node.yaml",
				FileMode:          0644,
			},
		},
		WaitingFor: wait.ForLog("canopy initialized").WithStartupTimeout(30 * time.Second),
		EndpointSettingsModifier: func(m map[string]*network.EndpointSettings) {
			if ip != "" {
				if s, ok := m[h.Network.Name]; ok {
					s.IPAMConfig = &network.EndpointIPAMConfig{
						IPv4Address: ip,
					}
				}
			}
		},
		LogConsumerCfg: &testcontainers.LogConsumerConfig{
			Consumers: []testcontainers.LogConsumer{log},
		},
		Name: h.t.Name() + "-" + name,
	}
	cont, err := testcontainers.GenericContainer(h.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		h.t.Fatalf("failed to start container %s: %v", name, err)
	}
	h.mu.Lock()
	h.Nodes[name] = cont
	h.Logs[name] = log
	h.mu.Unlock()
	return cont
}

// WaitForLog blocks until the node's output contains pattern.
func (h *Harness) WaitForLog(nodeName string, pattern string) {
	h.mu.Lock()
	log, ok := h.Logs[nodeName]
	h.mu.Unlock()
	if !ok {
		h.t.Fatalf("node %s not found", nodeName)
	}
	deadline := time.Now().Add(WaitTimeout)
	for time.Now().Before(deadline) {
		if strings.Contains(StripAnsi(log.String()), pattern) {
			return
		}
		time.Sleep(250 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for pattern %q in node %s; logs:\n%s",
		pattern, nodeName, log.String())
}

func (h *Harness) Cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, c := range h.Nodes {
		if err := c.Terminate(h.ctx); err != nil {
			h.t.Logf("failed to terminate container %s: %v", name, err)
		}
	}
	if err := h.Network.Remove(context.Background()); err != nil {
		h.t.Logf("failed to remove network: %v", err)
	}
}

// SetupTestDir creates a directory for the current test run.
func (h *Harness) SetupTestDir() string {
	dir := filepath.Join(h.RootDir, "e2e", "runs", h.t.Name())
	os.RemoveAll(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.t.Fatal(err)
	}
	return dir
}

// WriteConfig marshals cfg to YAML under dir and returns its path.
func (h *Harness) WriteConfig(dir, filename string, cfg any) string {
	path := filepath.Join(dir, filename)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		h.t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		h.t.Fatal(err)
	}
	return path
}

// SimpleLocal creates a LocalCfg for one node.
func SimpleLocal(id state.NodeId, policy state.Policy) state.LocalCfg {
	return state.LocalCfg{
		Id:     id,
		Policy: policy,
	}
}
