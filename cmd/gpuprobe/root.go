package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/gogpu/gpuapi"
	"github.com/gogpu/gpuapi/backend"
	"github.com/gogpu/gpuapi/backend/trace"
	"github.com/gogpu/gpuapi/gpucore"

	_ "github.com/gogpu/gpuapi/backend/memory"
	_ "github.com/gogpu/gpuapi/backend/native"
	_ "github.com/gogpu/gpuapi/backend/rust"
)

var rootCmd = &cobra.Command{
	Use:   "gpuprobe",
	Short: "Probe gpuapi backends",
	Long: `gpuprobe opens a gpuapi backend, lists its adapters and runs
small end-to-end checks: a buffer round trip through the queue and,
optionally, an image upload.

Without --backend the best registered backend is used (rust, native,
then memory).`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("backend", "", "backend to open (memory, native, rust)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Bool("json", false, "log as JSON even on a terminal")
	flags.String("trace", "", "write a JSON lines trace of every backend call to this file")

	for _, key := range []string{"backend", "log-level", "json", "trace"} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
}

func initConfig() {
	viper.SetEnvPrefix("GPUAPI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// setupLogging installs the gpuapi logger: text on a terminal, JSON
// otherwise or when --json is set.
func setupLogging(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	gpuapi.SetLogger(newLogger(cmd.ErrOrStderr(), level, viper.GetBool("json")))
	return nil
}

func newLogger(w io.Writer, level slog.Level, forceJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if forceJSON || !isTerminal(w) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// session is an open instance plus whatever must be closed with it.
type session struct {
	inst   *gpuapi.Instance
	device *gpuapi.Device
	trace  *os.File
}

func (s *session) Close() {
	if s.device != nil {
		s.device.Release()
	}
	s.inst.Release()
	if s.trace != nil {
		_ = s.trace.Close()
	}
}

func openBackend(name string) (gpucore.Backend, error) {
	if name == "" {
		return backend.Default()
	}
	return backend.Get(name)
}

func openSession() (*session, error) {
	b, err := openBackend(viper.GetString("backend"))
	if err != nil {
		return nil, err
	}
	s := &session{}
	if path := viper.GetString("trace"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("trace file: %w", err)
		}
		s.trace = f
		b = trace.NewJSON(b, f)
	}
	s.inst = gpuapi.NewInstance(b)
	return s, nil
}

// openDevice opens a session with the default adapter and a device.
func openDevice(ctx context.Context) (*session, *gpuapi.Device, *gpuapi.Queue, error) {
	s, err := openSession()
	if err != nil {
		return nil, nil, nil, err
	}
	adapter, err := s.inst.RequestAdapter(ctx, nil)
	if err != nil {
		s.Close()
		return nil, nil, nil, err
	}
	device, queue, err := adapter.RequestDevice(ctx, &gpuapi.DeviceDescriptor{Label: "gpuprobe"})
	adapter.Release()
	if err != nil {
		s.Close()
		return nil, nil, nil, err
	}
	s.device = device
	return s, device, queue, nil
}
