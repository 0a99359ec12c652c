package commands

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/p2pci/internal/cli/output"
	"github.com/marmos91/p2pci/pkg/catalog"
	"github.com/marmos91/p2pci/pkg/controlplane/api/handlers"
)

var (
	statusOutput  string
	statusPidFile string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the index server.

The PID file tells whether a background server is running; the status API
reports health, uptime and catalog size.

Examples:
  p2pci status
  p2pci status --api http://index.lan:8080
  p2pci status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/p2pci/p2pci.pid)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
	addAPIFlag(statusCmd)
}

// ServerStatus is the status command's result.
type ServerStatus struct {
	Running   bool   `json:"running" yaml:"running"`
	PID       int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Ready     bool   `json:"ready" yaml:"ready"`
	Message   string `json:"message" yaml:"message"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Peers     int    `json:"peers" yaml:"peers"`
	Documents int    `json:"documents" yaml:"documents"`
}

// Pairs renders the status as key/value rows.
func (s ServerStatus) Pairs() [][2]string {
	state := "Stopped"
	switch {
	case s.Running && s.Ready:
		state = "Running"
	case s.Running:
		state = "Running (not ready)"
	}

	pairs := [][2]string{{"Status", state}}
	if s.PID != 0 {
		pairs = append(pairs, [2]string{"PID", strconv.Itoa(s.PID)})
	}
	if s.StartedAt != "" {
		pairs = append(pairs, [2]string{"Started", s.StartedAt})
	}
	if s.Uptime != "" {
		pairs = append(pairs, [2]string{"Uptime", s.Uptime})
	}
	if s.Running {
		pairs = append(pairs,
			[2]string{"Peers", strconv.Itoa(s.Peers)},
			[2]string{"Documents", strconv.Itoa(s.Documents)})
	}
	return append(pairs, [2]string{"Message", s.Message})
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	status := collectStatus(cmd.Context(), apiURL, pidPath)

	if format == output.FormatTable {
		return output.KeyValues(os.Stdout, status.Pairs())
	}
	return output.NewPrinter(os.Stdout, format, false).Print(status)
}

func collectStatus(ctx context.Context, base, pidPath string) ServerStatus {
	if ctx == nil {
		ctx = context.Background()
	}
	status := ServerStatus{Message: "Server is not running"}

	if pid, err := readPidFile(pidPath); err == nil && processAlive(pid) {
		status.Running = true
		status.PID = pid
	}

	var health handlers.HealthData
	env, err := getAPI(ctx, base, "/health", &health)
	if err != nil {
		if status.Running {
			status.Message = "Server process exists but the status API is unreachable"
		}
		return status
	}

	status.Running = true
	status.Healthy = env.Status == "healthy"
	status.StartedAt = health.StartedAt
	if health.UptimeSec > 0 {
		status.Uptime = output.FormatUptime(time.Duration(health.UptimeSec) * time.Second)
	}

	var stats catalog.Stats
	if env, err := getAPI(ctx, base, "/health/ready", &stats); err == nil && env.Status == "healthy" {
		status.Ready = true
		status.Peers = stats.Peers
		status.Documents = stats.Documents
		status.Message = "Server is running and accepting peers"
	} else {
		status.Message = "Server is running but the index listener is not ready"
	}
	return status
}
