package notifier

import (
	"context"
	"fmt"
	"time"

	"buybackd/events"
	"buybackd/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	colorSuccess = 0x57F287
	colorFailure = 0xED4245
	colorNeutral = 0x99AAB5
)

const lamportsPerSol = 1_000_000_000

// DiscordNotifier posts a summary embed to a channel whenever a cycle
// finishes. Optional: wired only when a bot token is configured.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscordNotifier connects the bot session and subscribes to cycle
// completion events.
func NewDiscordNotifier(token, channelID string, bus *events.Bus) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}

	n := &DiscordNotifier{session: session, channelID: channelID}
	bus.Subscribe(events.EventTypeCycleFinished, n.onCycleFinished)

	log.WithField("channelID", channelID).Info("Discord notifier connected")
	return n, nil
}

// Close shuts down the bot session.
func (n *DiscordNotifier) Close() error {
	return n.session.Close()
}

func (n *DiscordNotifier) onCycleFinished(ctx context.Context, e events.Event) {
	ev, ok := e.(events.CycleFinishedEvent)
	if !ok {
		return
	}

	embed := buildCycleEmbed(ev)
	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		log.WithError(err).Error("Failed to send cycle notification")
	}
}

func buildCycleEmbed(ev events.CycleFinishedEvent) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Timestamp: time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Cycle #%d", ev.Cycle.ID),
		},
	}

	switch ev.Cycle.Status {
	case models.CycleStatusCompleted:
		embed.Title = "Distribution cycle completed"
		embed.Color = colorSuccess
		embed.Fields = []*discordgo.MessageEmbedField{
			{
				Name:   "Claimed",
				Value:  formatSol(ev.Cycle.ClaimedLamports),
				Inline: true,
			},
			{
				Name:   "Distributed",
				Value:  formatSol(ev.TotalDistributed),
				Inline: true,
			},
			{
				Name:   "Recipients",
				Value:  fmt.Sprintf("%d paid, %d failed", ev.RecipientsPaid, ev.RecipientsFailed),
				Inline: true,
			},
		}
	case models.CycleStatusFailed:
		embed.Title = "Distribution cycle failed"
		embed.Color = colorFailure
		if ev.Cycle.ErrorDetail != nil {
			embed.Description = *ev.Cycle.ErrorDetail
		}
	default:
		embed.Title = "Distribution cycle skipped"
		embed.Color = colorNeutral
		embed.Description = "Nothing to distribute this cycle."
	}

	return embed
}

func formatSol(lamports uint64) string {
	return fmt.Sprintf("%.4f SOL", float64(lamports)/lamportsPerSol)
}
