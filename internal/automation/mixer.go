package automation

import (
	"context"

	"github.com/rs/zerolog"
)

// Muter sets the mute flag of a mixer channel.
type Muter interface {
	SetMute(ctx context.Context, channel int, mute bool) error
}

// MixerSync mutes the configured channel while the main input is on screen
// and unmutes it otherwise. An unknown observation counts as "not main".
type MixerSync struct {
	muter     Muter
	channel   int
	mainInput int
	logger    zerolog.Logger
}

func NewMixerSync(muter Muter, channel, mainInput int, logger zerolog.Logger) *MixerSync {
	return &MixerSync{
		muter:     muter,
		channel:   channel,
		mainInput: mainInput,
		logger:    logger,
	}
}

// ShouldMute is the mute decision for an observed input.
func (m *MixerSync) ShouldMute(observed int) bool {
	return observed == m.mainInput
}

// Sync pushes the decision for observed to the mixer. Failures are logged only.
func (m *MixerSync) Sync(ctx context.Context, observed int) {
	mute := m.ShouldMute(observed)

	if err := m.muter.SetMute(ctx, m.channel, mute); err != nil {
		m.logger.Warn().
			Err(err).
			Int("channel", m.channel).
			Bool("mute", mute).
			Msg("mixer mute failed")
	}
}
