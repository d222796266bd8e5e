// Package analysis derives flow events and growth curves from a finished
// match and its timeline. Every function here is pure: the same inputs always
// produce the same output, byte for byte once encoded.
package analysis

import "time"

// Config carries the analyzer tunables. Zero values are replaced by the
// defaults in DefaultConfig.
type Config struct {
	TeamfightWindow   time.Duration `koanf:"teamfight_window" validate:"gte=0"`
	TeamfightRadius   float64       `koanf:"teamfight_radius" validate:"gte=0"`
	TeamfightMinKills int           `koanf:"teamfight_min_kills" validate:"gte=0"`

	VisionWindow      time.Duration `koanf:"vision_window" validate:"gte=0"`
	KillContextWindow time.Duration `koanf:"kill_context_window" validate:"gte=0"`

	GroupedPushRadius     float64 `koanf:"grouped_push_radius" validate:"gte=0"`
	GroupedPushMinPlayers int     `koanf:"grouped_push_min_players" validate:"gte=0,lte=5"`

	CurveKillWindow       time.Duration `koanf:"curve_kill_window" validate:"gte=0"`
	LaningMinute          int           `koanf:"laning_minute" validate:"gte=0"`
	TurningPointThreshold int           `koanf:"turning_point_threshold" validate:"gte=0"`

	// FrameInterval is used when the timeline omits its own interval.
	FrameInterval time.Duration `koanf:"frame_interval" validate:"gte=0"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TeamfightWindow:       20 * time.Second,
		TeamfightRadius:       4000,
		TeamfightMinKills:     3,
		VisionWindow:          60 * time.Second,
		KillContextWindow:     15 * time.Second,
		GroupedPushRadius:     3000,
		GroupedPushMinPlayers: 4,
		CurveKillWindow:       60 * time.Second,
		LaningMinute:          14,
		TurningPointThreshold: 1000,
		FrameInterval:         time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TeamfightWindow == 0 {
		c.TeamfightWindow = d.TeamfightWindow
	}
	if c.TeamfightRadius == 0 {
		c.TeamfightRadius = d.TeamfightRadius
	}
	if c.TeamfightMinKills == 0 {
		c.TeamfightMinKills = d.TeamfightMinKills
	}
	if c.VisionWindow == 0 {
		c.VisionWindow = d.VisionWindow
	}
	if c.KillContextWindow == 0 {
		c.KillContextWindow = d.KillContextWindow
	}
	if c.GroupedPushRadius == 0 {
		c.GroupedPushRadius = d.GroupedPushRadius
	}
	if c.GroupedPushMinPlayers == 0 {
		c.GroupedPushMinPlayers = d.GroupedPushMinPlayers
	}
	if c.CurveKillWindow == 0 {
		c.CurveKillWindow = d.CurveKillWindow
	}
	if c.LaningMinute == 0 {
		c.LaningMinute = d.LaningMinute
	}
	if c.TurningPointThreshold == 0 {
		c.TurningPointThreshold = d.TurningPointThreshold
	}
	if c.FrameInterval == 0 {
		c.FrameInterval = d.FrameInterval
	}
	return c
}
