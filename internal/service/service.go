package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
	redis_ipc "github.com/rescoot/redis-ipc"
	"golang.org/x/sync/errgroup"

	"github.com/flightcore/ap-supervisor/internal/config"
	"github.com/flightcore/ap-supervisor/internal/frame"
	"github.com/flightcore/ap-supervisor/internal/fsm"
	"github.com/flightcore/ap-supervisor/internal/hardware"
	"github.com/flightcore/ap-supervisor/internal/systemd"
)

const (
	stateHash   = "ap-supervisor"
	framesHash  = "ap-supervisor:frames"
	alertsList  = "ap-supervisor:alerts"
	commandList = "ap-supervisor:command"
	inputHash   = "autopilot"
)

type Service struct {
	config        *config.Config
	logger        *log.Logger
	redis         *redis_ipc.Client
	standardRedis *redis.Client
	core          *fsm.Core
	validator     *frame.Validator
	outputs       *hardware.Outputs
	systemd       *systemd.Client

	events chan Event

	// Owned by the event loop.
	inputs       fsm.Inputs
	last         fsm.Snapshot
	monitor      *tickMonitor
	ticker       *time.Ticker
	tickPeriod   time.Duration
	escalateUnit string
}

func New(cfg *config.Config, logger *log.Logger) (*Service, error) {
	redisConfig := redis_ipc.Config{
		Address:       cfg.RedisHost,
		Port:          cfg.RedisPort,
		RetryInterval: 5 * time.Second,
		MaxRetries:    3,
	}

	redisClient, err := redis_ipc.New(redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %v", err)
	}

	// Standard Redis client for the blocking frame reads
	standardRedisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		DB:   0,
	})

	service := &Service{
		config:        cfg,
		logger:        logger,
		redis:         redisClient,
		standardRedis: standardRedisClient,
		core:          fsm.NewCore(),
		validator:     frame.NewValidator(),
		events:        make(chan Event, 100),
		monitor:       newTickMonitor(cfg.TickPeriod),
		tickPeriod:    cfg.TickPeriod,
		escalateUnit:  cfg.EscalateUnit,
	}

	if cfg.GPIOChip != "" {
		outputs, err := hardware.NewOutputs(logger, cfg.GPIOChip, cfg.PullupLine, cfg.HealthyLine, cfg.DryRun)
		if err != nil {
			return nil, fmt.Errorf("failed to create discrete outputs: %v", err)
		}
		service.outputs = outputs
	}

	if cfg.EscalateUnit != "" && !cfg.DryRun {
		systemdClient, err := systemd.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create systemd client: %v", err)
		}
		service.systemd = systemdClient
	}

	return service, nil
}

func (s *Service) Run(ctx context.Context) error {
	inputSubscriber := s.redis.Subscribe(inputHash)
	for _, field := range InputFields {
		field := field
		if err := inputSubscriber.Handle(field, func(data []byte) error {
			return s.onInputField(field)
		}); err != nil {
			return fmt.Errorf("failed to subscribe to %s input: %v", field, err)
		}
	}

	s.redis.HandleRequests(commandList, s.onCommand)

	s.readInitialInputs()

	// Publish the initial conditions before the first tick.
	snap := s.core.Snapshot()
	s.publishState(snap)
	s.driveOutputs(snap.Outputs)
	s.last = snap

	g, ctx := errgroup.WithContext(ctx)

	if s.config.FrameList != "" {
		g.Go(func() error { return s.frameLoop(ctx) })
	}
	if s.config.File != "" {
		g.Go(func() error { return s.watchConfig(ctx) })
	}
	g.Go(func() error {
		s.eventLoop(ctx)
		return nil
	})

	err := g.Wait()

	if s.outputs != nil {
		if closeErr := s.outputs.Close(); closeErr != nil {
			s.logger.Printf("Failed to close discrete outputs: %v", closeErr)
		}
	}
	if s.systemd != nil {
		if closeErr := s.systemd.Close(); closeErr != nil {
			s.logger.Printf("Failed to close systemd client: %v", closeErr)
		}
	}
	if closeErr := s.redis.Close(); closeErr != nil {
		s.logger.Printf("Failed to close Redis client: %v", closeErr)
	}
	if closeErr := s.standardRedis.Close(); closeErr != nil {
		s.logger.Printf("Failed to close standard Redis client: %v", closeErr)
	}

	return err
}

// readInitialInputs reads the input hash once at startup. Missing fields
// default to false, which keeps the manager in transition mode until real
// inputs arrive.
func (s *Service) readInitialInputs() {
	const maxRetries = 5
	const retryDelay = 500 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		inputs := fsm.Inputs{}
		ok := true
		for _, field := range InputFields {
			value, err := s.redis.HGet(inputHash, field)
			if err != nil {
				ok = false
				break
			}
			inputs = SetField(inputs, field, ParseBool(value))
		}
		if ok {
			s.inputs = inputs
			s.logger.Printf("Read initial inputs: %+v", inputs)
			return
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	s.logger.Printf("WARNING: Could not read initial inputs from Redis, starting with all inputs false")
}

func (s *Service) onInputField(field string) error {
	value, err := s.redis.HGet(inputHash, field)
	if err != nil {
		return fmt.Errorf("failed to get %s input: %v", field, err)
	}

	s.events <- Event{
		Type: EventInputChanged,
		Data: InputChangedData{Field: field, Value: ParseBool(value)},
	}

	return nil
}

func (s *Service) onCommand(data []byte) error {
	s.events <- Event{
		Type: EventCommand,
		Data: CommandData{Command: string(data)},
	}

	return nil
}

// eventLoop processes ticks and events sequentially, owning all mutable
// Service state.
func (s *Service) eventLoop(ctx context.Context) {
	s.ticker = time.NewTicker(s.tickPeriod)
	defer s.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-s.ticker.C:
			s.onTick(now)
		case evt := <-s.events:
			s.handleEvent(evt)
		}
	}
}

// onTick runs one supervisory step. Ticks that fired while the loop was
// busy have been coalesced by the ticker; they are reported as skipped
// and the core state simply did not advance for them.
func (s *Service) onTick(now time.Time) {
	if skipped := s.monitor.Observe(now); skipped > 0 {
		s.logger.Printf("Overrun: skipped %d tick(s), %d total", skipped, s.monitor.Missed())
	}

	s.core.Step(s.inputs)
	snap := s.core.Snapshot()
	if snap == s.last {
		return
	}

	risingPullup := snap.Outputs.Pullup && !s.last.Outputs.Pullup

	s.logger.Printf("State change: manager=%s sensor=%s sensor-ok=%v pullup=%v",
		snap.Manager, snap.Sensor, snap.SensorOK, snap.Outputs.Pullup)

	s.publishState(snap)
	s.driveOutputs(snap.Outputs)
	s.last = snap

	if risingPullup {
		s.escalate(snap)
	}
}

func (s *Service) handleEvent(evt Event) {
	switch evt.Type {
	case EventInputChanged:
		data := evt.Data.(InputChangedData)
		s.handleInputChanged(data.Field, data.Value)
	case EventFrameReceived:
		data := evt.Data.(FrameReceivedData)
		s.handleFrame(data.Raw)
	case EventCommand:
		data := evt.Data.(CommandData)
		s.handleCommand(data.Command)
	case EventConfigChanged:
		data := evt.Data.(ConfigChangedData)
		s.handleConfigChanged(data)
	}
}

func (s *Service) handleInputChanged(field string, value bool) {
	updated := SetField(s.inputs, field, value)
	if updated == s.inputs {
		return
	}
	s.logger.Printf("Input %s: %v", field, value)
	s.inputs = updated
}

func (s *Service) handleFrame(raw []byte) {
	inputs, ok := s.validator.Validate(raw)
	if !ok {
		s.logger.Printf("Rejected telemetry frame (%d bytes)", len(raw))
		s.publishFrameStats()
		return
	}
	if inputs != s.inputs {
		s.logger.Printf("Inputs from frame: %+v", inputs)
	}
	s.inputs = inputs
}

func (s *Service) handleCommand(command string) {
	s.logger.Printf("Received command: %s", command)

	switch command {
	case "reset":
		s.core.Initialize()
		snap := s.core.Snapshot()
		s.publishState(snap)
		s.driveOutputs(snap.Outputs)
		s.last = snap
	default:
		s.logger.Printf("Unknown command: %s", command)
	}
}

func (s *Service) handleConfigChanged(data ConfigChangedData) {
	if data.TickPeriod > 0 && data.TickPeriod != s.tickPeriod {
		s.logger.Printf("Tick period changed: %v -> %v", s.tickPeriod, data.TickPeriod)
		s.tickPeriod = data.TickPeriod
		s.ticker.Reset(data.TickPeriod)
		s.monitor.Reset(data.TickPeriod)
	}
	if data.EscalateUnit != "" && data.EscalateUnit != s.escalateUnit {
		s.logger.Printf("Escalation unit changed: %s -> %s", s.escalateUnit, data.EscalateUnit)
		s.escalateUnit = data.EscalateUnit
	}
}

// frameLoop consumes raw telemetry frames from the configured Redis list.
func (s *Service) frameLoop(ctx context.Context) error {
	for {
		res, err := s.standardRedis.BLPop(ctx, time.Second, s.config.FrameList).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Printf("Frame read failed: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if len(res) != 2 {
			continue
		}

		s.events <- Event{
			Type: EventFrameReceived,
			Data: FrameReceivedData{Raw: []byte(res[1])},
		}
	}
}

// watchConfig reloads the tick period and escalation unit when the config
// file changes.
func (s *Service) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %v", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.config.File); err != nil {
		return fmt.Errorf("failed to watch config file: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			fc, err := config.ReadFile(s.config.File)
			if err != nil {
				s.logger.Printf("Config reload failed: %v", err)
				continue
			}

			data := ConfigChangedData{EscalateUnit: fc.EscalateUnit}
			if fc.TickPeriod != "" {
				d, err := time.ParseDuration(fc.TickPeriod)
				if err != nil {
					s.logger.Printf("Config reload: invalid tick_period %q: %v", fc.TickPeriod, err)
				} else {
					data.TickPeriod = d
				}
			}

			s.events <- Event{Type: EventConfigChanged, Data: data}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Printf("Config watcher error: %v", err)
		}
	}
}

// escalate runs once per rising pullup edge.
func (s *Service) escalate(snap fsm.Snapshot) {
	alert := fmt.Sprintf("pullup manager=%s sensor=%s", snap.Manager, snap.Sensor)
	s.logger.Printf("Pullup latched, escalating: %s", alert)

	if _, err := s.redis.LPush(alertsList, alert); err != nil {
		s.logger.Printf("Failed to push alert: %v", err)
	}

	if s.config.DryRun {
		s.logger.Printf("DRY RUN: Would restart unit %s", s.escalateUnit)
		return
	}

	if s.systemd == nil || s.escalateUnit == "" {
		return
	}

	if state, err := s.systemd.UnitActiveState(s.escalateUnit); err == nil {
		s.logger.Printf("Unit %s is %s before restart", s.escalateUnit, state)
	}

	if err := s.systemd.RestartUnit(s.escalateUnit); err != nil {
		s.logger.Printf("Failed to restart unit %s: %v", s.escalateUnit, err)
	} else {
		s.logger.Printf("Restarted unit %s", s.escalateUnit)
	}
}

func (s *Service) publishState(snap fsm.Snapshot) {
	tx := s.redis.NewTxGroup("supervisor-state")

	tx.Add("HSET", stateHash, "manager-mode", snap.Manager.String())
	tx.Add("HSET", stateHash, "sensor-mode", snap.Sensor.String())
	tx.Add("HSET", stateHash, "sensor-ok", strconv.FormatBool(snap.SensorOK))
	tx.Add("HSET", stateHash, "pullup", strconv.FormatBool(snap.Outputs.Pullup))
	tx.Add("PUBLISH", stateHash, "state")

	if _, err := tx.Exec(); err != nil {
		s.logger.Printf("Failed to publish supervisor state: %v", err)
	}
}

func (s *Service) publishFrameStats() {
	stats := s.validator.Stats()

	tx := s.redis.NewTxGroup("frame-stats")

	tx.Add("HSET", framesHash, "accepted", strconv.FormatUint(uint64(stats.Accepted), 10))
	tx.Add("HSET", framesHash, "bad-length", strconv.FormatUint(uint64(stats.TotalBadLength), 10))
	tx.Add("HSET", framesHash, "stale", strconv.FormatUint(uint64(stats.TotalStale), 10))
	tx.Add("HSET", framesHash, "bad-header", strconv.FormatUint(uint64(stats.TotalBadHeader), 10))
	tx.Add("HSET", framesHash, "bad-checksum", strconv.FormatUint(uint64(stats.TotalBadChecksum), 10))
	tx.Add("PUBLISH", framesHash, "updated")

	if _, err := tx.Exec(); err != nil {
		s.logger.Printf("Failed to publish frame stats: %v", err)
	}
}

func (s *Service) driveOutputs(out fsm.Outputs) {
	if s.outputs == nil {
		return
	}
	if err := s.outputs.SetPullup(out.Pullup); err != nil {
		s.logger.Printf("Failed to set pullup output: %v", err)
	}
	if err := s.outputs.SetHealthy(out.Healthy); err != nil {
		s.logger.Printf("Failed to set healthy output: %v", err)
	}
}
