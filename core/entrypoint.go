package core

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"path"
	"reflect"
	"syscall"
	"time"

	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"

	"github.com/encodeous/canopy/perf"
	"github.com/encodeous/canopy/radio"
	"github.com/encodeous/canopy/radio/udpradio"
	"github.com/encodeous/canopy/sensor"
	"github.com/encodeous/canopy/state"
)

func setupDebugging() {
	if state.DBG_debug {
		go func() {
			log.Println(http.ListenAndServe("0.0.0.0:6060", nil))
		}()
	}
}

// Start brings up one node and blocks in its main loop until the
// context is cancelled. aux may override the environment for tests and
// simulations: "radio" (radio.Radio), "sensor" (sensor.Sensor),
// "console" (io.Writer), "indicator" (func()).
func Start(ccfg state.CentralCfg, lcfg state.LocalCfg, logLevel slog.Level, aux map[string]any, initState **state.State) error {
	setupDebugging()
	ctx, cancel := context.WithCancelCause(context.Background())

	dispatch := make(chan func(env *state.State) error, 128)

	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			TimeFormat:   "15:04:05",
			CustomPrefix: lcfg.Id.String(),
		}))

	if lcfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(lcfg.LogPath), 0700)
		if err != nil {
			cancel(err)
			return err
		}
		f, err := os.OpenFile(lcfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0700)
		if err != nil {
			cancel(err)
			return err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}

	logger := slog.New(slogmulti.Fanout(handlers...))

	s := state.State{
		Modules: make(map[string]state.Module),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			CentralCfg:      ccfg,
			LocalCfg:        lcfg,
			Log:             logger,
			Console:         os.Stdout,
		},
	}
	applyAux(&s, aux)
	if s.Radio == nil {
		r, err := radioFromConfig(&ccfg, &lcfg)
		if err != nil {
			cancel(err)
			return err
		}
		s.Radio = r
	}
	if s.Sensor == nil {
		s.Sensor = &sensor.Wander{Base: sensor.Raw(215), Amplitude: 3}
	}
	if initState != nil {
		*initState = &s
	}

	s.Log.Info("init modules")
	if err := initModules(&s); err != nil {
		cancel(err)
		return err
	}
	s.Log.Info("init modules complete")

	s.Log.Info("canopy initialized", "id", lcfg.Id, "sink", s.Collect.IsSink(), "policy", lcfg.Policy)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-c:
			s.Cancel(errors.New("received shutdown signal"))
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()

	return MainLoop(&s, dispatch)
}

func applyAux(s *state.State, aux map[string]any) {
	if r, ok := aux["radio"].(radio.Radio); ok {
		s.Radio = r
	}
	if sn, ok := aux["sensor"].(sensor.Sensor); ok {
		s.Sensor = sn
	}
	if w, ok := aux["console"].(io.Writer); ok {
		s.Console = w
	}
	if f, ok := aux["indicator"].(func()); ok {
		s.Indicator = f
	}
}

func radioFromConfig(ccfg *state.CentralCfg, lcfg *state.LocalCfg) (radio.Radio, error) {
	nodes := make(map[uint16]netip.Addr, len(ccfg.Nodes))
	for _, n := range ccfg.Nodes {
		nodes[uint16(n.Id)] = n.Address
	}
	return udpradio.New(udpradio.Config{
		Id:       uint16(lcfg.Id),
		Group:    ccfg.Group,
		PortBase: ccfg.PortBase,
		Rssi:     ccfg.Rssi,
		Nodes:    nodes,
	}), nil
}

func initModules(s *state.State) error {
	var modules []state.Module
	modules = append(modules, &Tree{})
	modules = append(modules, &Datapath{})
	modules = append(modules, &Stats{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				goto endLoop
			}
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > time.Millisecond*50 {
				s.Log.Warn("dispatch took a long time!", "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
	return nil
}

func Stop(s *state.State) {
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during cleanup: ", "module", moduleName, "error", err)
		}
	}
	if s.Radio != nil {
		s.Radio.Close()
	}
	s.Log.Info("stopped")
}
