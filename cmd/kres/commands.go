package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/kres-mod/kres/internal/config"
	"github.com/kres-mod/kres/internal/defaults"
	"github.com/kres-mod/kres/internal/dispatcher"
	"github.com/kres-mod/kres/internal/generator"
	"github.com/kres-mod/kres/internal/geo"
	"github.com/kres-mod/kres/internal/host"
	"github.com/kres-mod/kres/internal/logging"
	"github.com/kres-mod/kres/internal/monitor"
	"github.com/kres-mod/kres/internal/noise"
	"github.com/kres-mod/kres/internal/session"
	"github.com/kres-mod/kres/internal/worker"
	"github.com/spf13/viper"
)

// app bundles what every session command needs.
type app struct {
	env        *host.Static
	session    *session.Session
	worker     *worker.Manager
	dispatcher *dispatcher.Dispatcher
	monitor    *monitor.Service
}

func loadEnvironment() (*host.Static, error) {
	mapCfg := config.GetMapConfig()
	env, err := host.LoadStatic(viper.GetString("hostFile"), mapCfg.HeightmapDir, Logger)
	if err != nil {
		return nil, err
	}
	Logger.Info("Loaded host description", "bodies", len(env.Bodies()), "vessels", len(env.VesselNames()))
	return env, nil
}

func openSession(ctx context.Context) (*app, error) {
	saveDir := viper.GetString("saveDir")
	if err := os.MkdirAll(saveDir, 0755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}

	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	lib, err := defaults.LoadDir(viper.GetString("defaultsDir"), Logger)
	if err != nil {
		return nil, err
	}
	if err := initStorage(saveDir); err != nil {
		return nil, err
	}
	influxManager = setupInflux(ctx)

	mapCfg := config.GetMapConfig()
	s, err := session.Open(ctx, session.Dependencies{
		Env:     env,
		Library: lib,
		Backend: storageBackend,
		Logger:  Logger,
		Points:  influxManager,
	}, session.Config{
		SaveDir: saveDir,
		Pack:    viper.GetString("defaultPack"),
		Map: generator.Options{
			Width:        mapCfg.Width,
			Height:       mapCfg.Height,
			RowsPerSlice: mapCfg.MaxLinesPerFrame,
			Noise:        noise.Kind(mapCfg.Noise),
		},
	})
	if err != nil {
		return nil, err
	}

	// Set up dynamic state callbacks for logging
	SlogManager.Session = logging.SessionFuncs{
		Save: s.Name,
		Pack: func() string { return s.Pack().Name },
	}

	w, err := worker.NewManager(worker.Dependencies{
		Session: s,
		Vessels: func(name string) (host.Vessel, error) {
			v, err := env.Vessel(name)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
		Logger:         Logger,
		FixedDeltaTime: config.GetScannerConfig().FixedDeltaTime,
		Version:        CurrentVersion,
	})
	if err != nil {
		return nil, err
	}

	d, err := dispatcher.New(logging.NewCommandLogger(ZLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	w.RegisterHandlers(d)
	Logger.Debug("Registered host commands", "commands", d.Commands())

	return &app{
		env:        env,
		session:    s,
		worker:     w,
		dispatcher: d,
		monitor: monitor.NewService(monitor.Dependencies{
			Session:   s,
			Worker:    w,
			Logger:    Logger,
			StatusDir: saveDir,
		}),
	}, nil
}

// startup drives the session to Ready one frame at a time, logging each
// finished slice of generation.
func (rt *app) startup(ctx context.Context) error {
	start := time.Now()
	lastLogged := -1.0
	for rt.session.Phase() != session.Ready {
		res, err := rt.worker.Frame(ctx, 0)
		if err != nil {
			return err
		}
		rt.monitor.Frame()
		if p := rt.session.Progress(); p-lastLogged >= 0.05 || res.Phase == session.Ready {
			lastLogged = p
			Logger.Info("Startup progress", "phase", res.Phase.String(), "progress", fmt.Sprintf("%.0f%%", p*100))
		}
	}
	Logger.Info("Session ready", "duration", time.Since(start), "frames", rt.worker.Frames())
	return nil
}

func (rt *app) close(ctx context.Context) error {
	err := rt.session.Close(ctx)
	rt.monitor.Frame()
	return err
}

func runGenerate(ctx context.Context) error {
	rt, err := openSession(ctx)
	if err != nil {
		return err
	}
	if _, err := rt.dispatcher.Dispatch(dispatcher.Event{Command: ":GENERATE:", Timestamp: time.Now()}); err != nil {
		return err
	}
	for _, r := range rt.session.Generator().Results() {
		Logger.Info("Generation result", "body", r.Job.Body, "resource", r.Job.Def.Name, "skipped", r.Skipped, "reason", r.Reason)
	}
	return rt.close(ctx)
}

func runScan(ctx context.Context, vessel, typeName, seconds string) error {
	total, err := strconv.ParseFloat(seconds, 64)
	if err != nil || total <= 0 {
		return fmt.Errorf("invalid scan duration %q", seconds)
	}

	rt, err := openSession(ctx)
	if err != nil {
		return err
	}
	if err := rt.startup(ctx); err != nil {
		return err
	}

	if _, err := rt.dispatcher.DispatchLine(fmt.Sprintf(":SCAN:START: %q %q", vessel, typeName)); err != nil {
		return err
	}
	remaining := time.Duration(total * float64(time.Second))
	frame := time.Second
	for remaining > 0 {
		if frame > remaining {
			frame = remaining
		}
		res, err := rt.worker.Frame(ctx, frame)
		if err != nil {
			return err
		}
		rt.monitor.Frame()
		remaining -= frame
		if res.Scanning == 0 && rt.dispatcher.Pending() == 0 {
			break
		}
	}

	status, err := rt.dispatcher.Dispatch(dispatcher.Event{Command: ":SCAN:STATUS:", Args: []string{vessel}})
	if err != nil {
		return err
	}
	fmt.Println(status)
	return rt.close(ctx)
}

func runStatus(ctx context.Context, out io.Writer) error {
	rt, err := openSession(ctx)
	if err != nil {
		return err
	}
	if err := rt.startup(ctx); err != nil {
		return err
	}
	lines, _ := rt.monitor.GetProgramStatus(false)
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return rt.close(ctx)
}

func runReset(ctx context.Context) error {
	rt, err := openSession(ctx)
	if err != nil {
		return err
	}
	if _, err := rt.dispatcher.Dispatch(dispatcher.Event{Command: ":RESET:"}); err != nil {
		return err
	}
	return rt.close(ctx)
}

func runProbe(ctx context.Context, out io.Writer, args []string) error {
	lat, lon, err := geo.ParseLatLon(args[2] + "," + args[3])
	if err != nil {
		return err
	}
	rt, err := openSession(ctx)
	if err != nil {
		return err
	}
	if err := rt.startup(ctx); err != nil {
		return err
	}
	res, err := rt.session.Probe(args[0], args[1], lat, lon)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return rt.close(ctx)
}
