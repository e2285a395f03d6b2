package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/CamGo/internal/config"
	"github.com/cjeanneret/CamGo/internal/debug"
	"github.com/cjeanneret/CamGo/internal/hw/camera"
	"github.com/cjeanneret/CamGo/internal/logic/capture"
	"github.com/cjeanneret/CamGo/internal/web"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	cfgPath    string
	debugLevel int
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "camgo",
		Short:         "Capture pictures and browse them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")
	cmd.PersistentFlags().IntVar(&opts.debugLevel, "debug", -1, "debug level 0-4, overrides the config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCaptureCmd(opts))
	cmd.AddCommand(newDeviceCmd(opts))
	return cmd
}

// load reads the configuration and initializes the debug system.
func (o *rootOptions) load() error {
	if err := config.ValidateConfigPath(o.cfgPath); err != nil {
		return err
	}
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if o.debugLevel > 4 {
		return fmt.Errorf("debug level must be between 0 and 4, got %d", o.debugLevel)
	}
	if o.debugLevel >= 0 {
		cfg.Defaults.DebugLevel = o.debugLevel
	}
	o.cfg = cfg

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", o.cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	return nil
}

// ---------- serve ----------

func newServeCmd(opts *rootOptions) *cobra.Command {
	port := &webPortFlag{defaultPort: 8080}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the viewer and the capture API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port.port() == 0 {
				port.val = opts.cfg.Defaults.WebPort
			}
			return runServe(cmd.Context(), opts, fmt.Sprintf(":%d", port.port()))
		},
	}
	cmd.Flags().Var(port, "port", "listen port (1-65535), defaults to web_port from config")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, addr string) error {
	broadcaster := web.NewStatusBroadcaster()
	defer broadcaster.Close()
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	defer debug.SetOutput(os.Stdout)

	a, err := newApp(opts.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			debug.Error(err)
		}
	}()

	if _, ok := a.devices.Lookup(); ok {
		id, err := a.device.Identity(ctx).Await(ctx)
		if err != nil {
			debug.Error(fmt.Errorf("device lookup: %w", err))
		} else {
			debug.Info("Running on %s", id)
		}
	}

	srv, err := web.NewServer(addr, broadcaster, a.session, a.device)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		return config.Watch(ctx, opts.cfgPath, func(cfg *config.Config) {
			if err := a.session.SetCaptureOptions(cfg.Camera.Options); err != nil {
				debug.Error(err)
			}
			debug.Init(cfg.Defaults.DebugLevel)
		})
	})
	return g.Wait()
}

// ---------- capture ----------

// captureOverrides holds CLI values replacing the configured capture
// options. Negative numbers and empty strings mean "use config".
type captureOverrides struct {
	quality  int
	encoding string
	format   string
	width    int
	height   int
}

func newCaptureCmd(opts *rootOptions) *cobra.Command {
	var params capture.Params
	o := captureOverrides{quality: -1, width: -1, height: -1}

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Take pictures and print the resulting session as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := params.Validate(); err != nil {
				return err
			}
			captureOpts, err := applyOverrides(opts.cfg.Camera.Options, o)
			if err != nil {
				return fmt.Errorf("invalid CLI override: %w", err)
			}
			opts.cfg.Camera.Options = captureOpts
			return runCapture(cmd.Context(), opts.cfg, params, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&params.Count, "count", "n", 1, "number of pictures to take")
	cmd.Flags().DurationVar(&params.ShotDelay, "delay", 0, "wait before each picture")
	cmd.Flags().DurationVar(&params.Interval, "interval", 0, "wait between pictures (timelapse)")
	cmd.Flags().BoolVar(&params.ContinueOnError, "keep-going", false, "continue after a failed picture")
	cmd.Flags().IntVar(&o.quality, "quality", o.quality, "override quality (0-100)")
	cmd.Flags().StringVar(&o.encoding, "encoding", "", "override encoding (jpeg, png)")
	cmd.Flags().StringVar(&o.format, "format", "", "override output format (inline_data, file_reference, native_reference)")
	cmd.Flags().IntVar(&o.width, "width", o.width, "override target width")
	cmd.Flags().IntVar(&o.height, "height", o.height, "override target height")
	return cmd
}

func runCapture(ctx context.Context, cfg *config.Config, params capture.Params, out io.Writer) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	shots, err := capture.NewSequence(a.session).Run(ctx, params)
	if err != nil && (len(shots) == 0 || !params.ContinueOnError) {
		a.close()
		return fmt.Errorf("capture failed: %w", err)
	}
	if err != nil {
		debug.Info("%d/%d pictures taken", len(shots), params.Count)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.session.State()); err != nil {
		a.close()
		return err
	}
	// file references stay valid until the camera cleans up
	if cfg.Camera.Options.OutputFormat == camera.FileReference {
		a.session.Close()
		return a.closeGPIO()
	}
	return a.close()
}

// applyOverrides returns opts with the non-empty overrides applied, validated.
func applyOverrides(opts camera.Options, o captureOverrides) (camera.Options, error) {
	if o.quality >= 0 {
		opts.Quality = o.quality
	}
	if o.encoding != "" {
		if err := opts.Encoding.UnmarshalText([]byte(o.encoding)); err != nil {
			return opts, err
		}
	}
	if o.format != "" {
		if err := opts.OutputFormat.UnmarshalText([]byte(o.format)); err != nil {
			return opts, err
		}
	}
	if o.width >= 0 {
		opts.TargetWidth = o.width
	}
	if o.height >= 0 {
		opts.TargetHeight = o.height
	}
	return opts, opts.Validate()
}

// ---------- device ----------

func newDeviceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Print the identity of the device as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDevice(cmd.Context(), opts.cfg, cmd.OutOrStdout())
		},
	}
}

func runDevice(ctx context.Context, cfg *config.Config, out io.Writer) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	id, err := a.device.Identity(ctx).Await(ctx)
	if err != nil {
		return err
	}
	if id == nil {
		return fmt.Errorf("no device record")
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(id)
}

// webPortFlag implements pflag.Value for --port: 0 = use config, --port= → 8080, --port 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) Type() string { return "port" }

func (w *webPortFlag) port() int { return w.val }
