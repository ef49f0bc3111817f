package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Agent holds all configuration for the plate-keeper agent.
type Agent struct {
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"` // empty disables /metrics

	Bridge      BridgeConfig      `yaml:"bridge"`
	Destination DestinationConfig `yaml:"destination"`
	Navigation  NavigationConfig  `yaml:"navigation"`
	Combat      CombatConfig      `yaml:"combat"`
	Recovery    RecoveryConfig    `yaml:"recovery"`
	Planner     PlannerConfig     `yaml:"planner"`
	Reconnect   ReconnectConfig   `yaml:"reconnect"`

	// Exempt lists player names that are never targeted or retaliated against.
	Exempt []string `yaml:"exempt"`

	PingInterval time.Duration `yaml:"ping_interval"`
	PingCommand  string        `yaml:"ping_command"`
}

// BridgeConfig describes the websocket connection to the world bridge.
type BridgeConfig struct {
	URL            string        `yaml:"url"`
	Username       string        `yaml:"username"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	GotoTimeout    time.Duration `yaml:"goto_timeout"`
}

// DestinationConfig is the fixed point the agent walks to and holds.
type DestinationConfig struct {
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Z         float64 `yaml:"z"`
	Tolerance float64 `yaml:"tolerance"`
	// MinDrift is the smallest horizontal drift that counts as leaving a
	// reached destination. Needed because drift is 2x tolerance and the
	// tolerance may be zero.
	MinDrift float64 `yaml:"min_drift"`
}

// NavigationConfig tunes the navigation supervisor and its monitors.
type NavigationConfig struct {
	StuckCheckInterval    time.Duration `yaml:"stuck_check_interval"`
	MovementCheckInterval time.Duration `yaml:"movement_check_interval"`
	Epsilon               float64       `yaml:"epsilon"`
	JumpRung              int           `yaml:"jump_rung"`
	ReissueRung           int           `yaml:"reissue_rung"`
	RestartRung           int           `yaml:"restart_rung"`
	MaxIdleTicks          int           `yaml:"max_idle_ticks"`
	RetryInterval         time.Duration `yaml:"retry_interval"`
	TransientBackoff      time.Duration `yaml:"transient_backoff"`
	SettleDelay           time.Duration `yaml:"settle_delay"`
	ReissueDelay          time.Duration `yaml:"reissue_delay"`
	ResumeDelay           time.Duration `yaml:"resume_delay"`
	NoRouteLimit          int           `yaml:"no_route_limit"`
	NoRouteRestartDelay   time.Duration `yaml:"no_route_restart_delay"`
	JumpDuration          time.Duration `yaml:"jump_duration"`
}

// CombatConfig tunes the combat engagement engine.
type CombatConfig struct {
	AttackRange   float64 `yaml:"attack_range"`
	ChaseRange    float64 `yaml:"chase_range"`
	ThreatRange   float64 `yaml:"threat_range"`
	OptimalRange  float64 `yaml:"optimal_range"`
	CriticalRange float64 `yaml:"critical_range"`

	WeaponCooldowns map[string]time.Duration `yaml:"weapon_cooldowns"`
	DefaultCooldown time.Duration            `yaml:"default_cooldown"`
	CooldownBuffer  time.Duration            `yaml:"cooldown_buffer"`

	TickInterval   time.Duration `yaml:"tick_interval"`
	StrafeInterval time.Duration `yaml:"strafe_interval"`
	StrafeDuration time.Duration `yaml:"strafe_duration"`
	StrafeChance   float64       `yaml:"strafe_chance"`
	StrafeFlip     float64       `yaml:"strafe_flip_chance"`
	StrafeCrouch   float64       `yaml:"strafe_crouch_chance"`

	WTapDuration   time.Duration `yaml:"wtap_duration"`
	WTapChance     float64       `yaml:"wtap_chance"`
	STapDuration   time.Duration `yaml:"stap_duration"`
	STapChance     float64       `yaml:"stap_chance"`
	CrouchDuration time.Duration `yaml:"crouch_duration"`
	CrouchAfterHit float64       `yaml:"crouch_after_hit"`

	MaxSessionTime  time.Duration `yaml:"max_session_time"`
	MaxHits         int           `yaml:"max_hits"`
	ReleaseDelay    time.Duration `yaml:"release_delay"`
	RevengeRadius   float64       `yaml:"revenge_radius"` // added to attack range
	ThreatTableSize int           `yaml:"threat_table_size"`
}

// RecoveryConfig tunes the disruption recovery sequencer.
type RecoveryConfig struct {
	WarpCommand       string        `yaml:"warp_command"`
	TeleportItem      string        `yaml:"teleport_item"`
	WarpRetryAttempts int           `yaml:"warp_retry_attempts"`
	WarpConfirmWait   time.Duration `yaml:"warp_confirm_wait"`
	CooldownAttempts  int           `yaml:"cooldown_attempts"`
	CooldownWait      time.Duration `yaml:"cooldown_wait"`
	KickSettle        time.Duration `yaml:"kick_settle"`
	RestartSettle     time.Duration `yaml:"restart_settle"`
	WorldStabilize    time.Duration `yaml:"world_stabilize"`
	RespawnDelay      time.Duration `yaml:"respawn_delay"`
	SpawnSettle       time.Duration `yaml:"spawn_settle"`
	Patterns          ChatPatterns  `yaml:"patterns"`
}

// ChatPatterns are lowercase substrings classifying incoming chat text.
type ChatPatterns struct {
	WarpConfirmed   []string `yaml:"warp_confirmed"`
	CommandRejected []string `yaml:"command_rejected"`
	Cooldown        []string `yaml:"cooldown"`
	Kick            []string `yaml:"kick"`
	PlateThreat     []string `yaml:"plate_threat"`
}

// PlannerConfig is applied to the path planner once per restart.
type PlannerConfig struct {
	CanJump         bool          `yaml:"can_jump"`
	AllowSprinting  bool          `yaml:"allow_sprinting"`
	MaxJumpHeight   int           `yaml:"max_jump_height"`
	AllowParkour    bool          `yaml:"allow_parkour"`
	MaxFallDistance int           `yaml:"max_fall_distance"`
	AllowFalling    bool          `yaml:"allow_falling"`
	BreakBlocks     bool          `yaml:"break_blocks"`
	PlaceBlocks     bool          `yaml:"place_blocks"`
	AvoidWater      bool          `yaml:"avoid_water"`
	AvoidLava       bool          `yaml:"avoid_lava"`
	AllowDiagonals  bool          `yaml:"allow_diagonals"`
	SearchRadius    int           `yaml:"search_radius"`
	ThinkTimeout    time.Duration `yaml:"think_timeout"`
	Timeout         time.Duration `yaml:"timeout"`
}

// ReconnectConfig controls the reconnect loop.
type ReconnectConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MinDelay     time.Duration `yaml:"min_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// DefaultWeaponCooldowns returns the attack cooldown per main-hand item.
func DefaultWeaponCooldowns() map[string]time.Duration {
	return map[string]time.Duration{
		"netherite_sword": 625 * time.Millisecond,
		"diamond_sword":   625 * time.Millisecond,
		"iron_sword":      625 * time.Millisecond,
		"stone_sword":     625 * time.Millisecond,
		"golden_sword":    625 * time.Millisecond,
		"wooden_sword":    625 * time.Millisecond,
		"netherite_axe":   1000 * time.Millisecond,
		"diamond_axe":     1000 * time.Millisecond,
		"iron_axe":        1100 * time.Millisecond,
		"stone_axe":       1250 * time.Millisecond,
		"wooden_axe":      1250 * time.Millisecond,
		"golden_axe":      1000 * time.Millisecond,
		"trident":         1100 * time.Millisecond,
	}
}

// DefaultAgent returns Agent config with sensible defaults.
func DefaultAgent() Agent {
	return Agent{
		LogLevel: "info",
		Bridge: BridgeConfig{
			URL:            "ws://127.0.0.1:8787/bridge",
			Username:       "BotName",
			DialTimeout:    10 * time.Second,
			RequestTimeout: 5 * time.Second,
			GotoTimeout:    45 * time.Second,
		},
		Destination: DestinationConfig{
			X:         1130,
			Y:         68,
			Z:         -2476,
			Tolerance: 0,
			MinDrift:  1,
		},
		Navigation: NavigationConfig{
			StuckCheckInterval:    4 * time.Second,
			MovementCheckInterval: 2 * time.Second,
			Epsilon:               0.5,
			JumpRung:              2,
			ReissueRung:           4,
			RestartRung:           6,
			MaxIdleTicks:          4,
			RetryInterval:         3 * time.Second,
			TransientBackoff:      2 * time.Second,
			SettleDelay:           500 * time.Millisecond,
			ReissueDelay:          500 * time.Millisecond,
			ResumeDelay:           500 * time.Millisecond,
			NoRouteLimit:          3,
			NoRouteRestartDelay:   2 * time.Second,
			JumpDuration:          100 * time.Millisecond,
		},
		Combat: CombatConfig{
			AttackRange:     3.2,
			ChaseRange:      16,
			ThreatRange:     5,
			OptimalRange:    2.8,
			CriticalRange:   1.5,
			WeaponCooldowns: DefaultWeaponCooldowns(),
			DefaultCooldown: 625 * time.Millisecond,
			CooldownBuffer:  50 * time.Millisecond,
			TickInterval:    50 * time.Millisecond,
			StrafeInterval:  300 * time.Millisecond,
			StrafeDuration:  200 * time.Millisecond,
			StrafeChance:    0.6,
			StrafeFlip:      0.3,
			StrafeCrouch:    0.15,
			WTapDuration:    60 * time.Millisecond,
			WTapChance:      0.55,
			STapDuration:    80 * time.Millisecond,
			STapChance:      0.3,
			CrouchDuration:  150 * time.Millisecond,
			CrouchAfterHit:  0.35,
			MaxSessionTime:  15 * time.Second,
			MaxHits:         25,
			ReleaseDelay:    time.Second,
			RevengeRadius:   2,
			ThreatTableSize: 64,
		},
		Recovery: RecoveryConfig{
			WarpCommand:       "/warp exit",
			TeleportItem:      "compass",
			WarpRetryAttempts: 12,
			WarpConfirmWait:   5 * time.Second,
			CooldownAttempts:  3,
			CooldownWait:      2 * time.Second,
			KickSettle:        1500 * time.Millisecond,
			RestartSettle:     time.Second,
			WorldStabilize:    3 * time.Second,
			RespawnDelay:      3 * time.Second,
			SpawnSettle:       time.Second,
			Patterns: ChatPatterns{
				WarpConfirmed:   []string{"вы появились на варпе exit"},
				CommandRejected: []string{"этой команды не существует"},
				Cooldown:        []string{"совсем недавно выходили с этого сервера", "подождите немного"},
				Kick: []string{
					"you were kicked",
					"you have been kicked",
					"kicked from",
					"вы были кикнуты",
					"вас кикнули",
				},
				PlateThreat: []string{"на плите стоит другой игрок", "столкни его", "плите стоит игрок"},
			},
		},
		Planner: PlannerConfig{
			CanJump:         true,
			AllowSprinting:  true,
			MaxJumpHeight:   1,
			AllowParkour:    true,
			MaxFallDistance: 3,
			AllowFalling:    true,
			AvoidLava:       true,
			AllowDiagonals:  true,
			SearchRadius:    150,
			ThinkTimeout:    15 * time.Second,
			Timeout:         40 * time.Second,
		},
		Reconnect: ReconnectConfig{
			InitialDelay: 6 * time.Second,
			MinDelay:     5 * time.Second,
			MaxDelay:     8 * time.Second,
		},
		PingInterval: 2 * time.Minute,
		PingCommand:  "/ping",
	}
}

// Validate checks values that would break the control loops.
func (c Agent) Validate() error {
	var errs []error
	if c.Bridge.URL == "" {
		errs = append(errs, errors.New("bridge.url is required"))
	}
	if c.Destination.Tolerance < 0 {
		errs = append(errs, errors.New("destination.tolerance must be >= 0"))
	}
	n := c.Navigation
	if n.StuckCheckInterval <= 0 || n.MovementCheckInterval <= 0 {
		errs = append(errs, errors.New("navigation check intervals must be positive"))
	}
	if !(0 < n.JumpRung && n.JumpRung < n.ReissueRung && n.ReissueRung < n.RestartRung) {
		errs = append(errs, fmt.Errorf("navigation rungs must be strictly increasing, got %d/%d/%d",
			n.JumpRung, n.ReissueRung, n.RestartRung))
	}
	if c.Combat.TickInterval <= 0 || c.Combat.StrafeInterval <= 0 {
		errs = append(errs, errors.New("combat tick and strafe intervals must be positive"))
	}
	if c.Combat.AttackRange > c.Combat.ChaseRange {
		errs = append(errs, errors.New("combat.attack_range must not exceed combat.chase_range"))
	}
	if c.Recovery.WarpRetryAttempts < 1 || c.Recovery.CooldownAttempts < 1 {
		errs = append(errs, errors.New("recovery attempt counts must be >= 1"))
	}
	if c.Reconnect.MaxDelay < c.Reconnect.MinDelay {
		errs = append(errs, errors.New("reconnect.max_delay must be >= reconnect.min_delay"))
	}
	return errors.Join(errs...)
}

// LoadAgent loads agent config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadAgent(path string) (Agent, error) {
	cfg := DefaultAgent()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}
