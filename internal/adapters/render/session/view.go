package session

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/mycelium-pulse/internal/application"
	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 20

type RenderOptions struct {
	Now time.Time
}

func RenderSessions(snapshots []application.SessionSnapshot, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return sessionsView(snapshots, opts, s) })
}

func RenderDelivery(result application.DeliveryResult, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return deliveryView(result, opts, s) })
}

// RenderPatterns shows translated patterns without any session context.
func RenderPatterns(patterns []domain.FeedbackPattern) (string, error) {
	return run(func(s styles) string {
		lines := []string{s.title.Render("Mycelium Pulse")}
		for _, p := range patterns {
			lines = append(lines, s.section.Render(patternBlock(p, s)))
		}
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	})
}

func RenderReflections(view application.ReflectionView, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return reflectionsView(view, opts, s) })
}

func sessionsView(snapshots []application.SessionSnapshot, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Mycelium Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(snapshots))),
	}

	if len(snapshots) == 0 {
		lines = append(lines, s.empty.Render("No sessions scheduled."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, snap := range snapshots {
		lines = append(lines, s.section.Render(sessionBlock(snap, opts, s)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func sessionBlock(snap application.SessionSnapshot, opts RenderOptions, s styles) string {
	session := snap.Session
	now := opts.Now
	if now.IsZero() {
		now = snap.AsOf
	}

	parts := []string{
		s.session.Render(fmt.Sprintf("%s (%s)", session.ID, session.State)),
		s.detail.Render(fmt.Sprintf("%s over %s", domainLabels(session.Domains), session.FocusArea)),
		s.key.Render("scheduled: ") + s.meta.Render(formatRelative(session.ScheduledAt, now)),
		s.key.Render("members: ") + s.meta.Render(memberCount(len(snap.Members), session.Capacity)) + joinWindowLabel(snap, s),
	}

	if session.State == domain.StateCancelled && session.CancelReason != "" {
		parts = append(parts, s.warning.Render("cancelled: "+session.CancelReason))
	}
	if session.Delivery != nil {
		if primary, ok := session.Delivery.Pulse.Primary(); ok {
			parts = append(parts, patternLine(primary, s))
		}
		if failed := len(session.Delivery.Failures()); failed > 0 {
			parts = append(parts, s.warning.Render(fmt.Sprintf("%d delivery failure(s)", failed)))
		}
	}
	if session.ReflectionCircleID != "" {
		parts = append(parts, s.key.Render("reflection circle: ")+s.meta.Render(string(session.ReflectionCircleID)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func deliveryView(result application.DeliveryResult, opts RenderOptions, s styles) string {
	header := fmt.Sprintf("session %s: %s", result.SessionID, result.State)
	if result.Replayed {
		header += " (already delivered)"
	}

	lines := []string{
		s.title.Render("Mycelium Pulse"),
		s.header.Render(header),
	}

	if result.State == domain.StateCancelled {
		lines = append(lines, s.warning.Render("no pulse was delivered"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, seg := range result.Pulse.Segments {
		block := patternBlock(seg.Pattern, s)
		if len(result.Pulse.Segments) > 1 {
			block = s.meta.Render(fmt.Sprintf("+%s", seg.Offset)) + "\n" + block
		}
		lines = append(lines, s.section.Render(block))
	}

	summary := fmt.Sprintf("delivered to %d of %d participants", len(result.Delivered), len(result.Members))
	lines = append(lines, s.section.Render(s.detail.Render(summary)))
	if !result.ReadingAt.IsZero() {
		lines = append(lines, s.meta.Render("reading taken "+formatAge(result.ReadingAt, opts.Now)))
	}
	for _, failure := range result.Failures {
		lines = append(lines, s.warning.Render(fmt.Sprintf("%s: %s", failure.ParticipantID, failure.Error)))
	}
	if result.CircleID != "" {
		lines = append(lines, s.key.Render("reflection circle: ")+s.meta.Render(string(result.CircleID)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func reflectionsView(view application.ReflectionView, opts RenderOptions, s styles) string {
	state := "open"
	if view.Circle.Closed() {
		state = "closed"
	}

	lines := []string{
		s.title.Render("Reflection Circle"),
		s.header.Render(fmt.Sprintf("%s for %s (%s)", view.Circle.ID, view.Circle.SessionID, state)),
		s.detail.Render(view.Summary.String()),
	}

	if len(view.Entries) == 0 {
		lines = append(lines, s.empty.Render("No reflections yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, entry := range view.Entries {
		parts := []string{
			s.session.Render(string(entry.ParticipantID)) + " " + s.meta.Render(formatAge(entry.SubmittedAt, opts.Now)),
			s.detail.Render(entry.Content),
		}
		if entry.EmotionTag != "" {
			parts = append(parts, s.emotion.Render("feeling "+entry.EmotionTag))
		}
		for _, insight := range entry.Insights {
			parts = append(parts, s.meta.Render("insight: "+insight))
		}
		for _, idea := range entry.ActionIdeas {
			parts = append(parts, s.key.Render("action: ")+s.detail.Render(idea))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func patternBlock(p domain.FeedbackPattern, s styles) string {
	parts := []string{
		s.session.Render(fmt.Sprintf("%s: %s", p.Domain.Label(), p.Type)),
		patternLine(p, s),
		s.meta.Render(fmt.Sprintf("%s, %d pulse(s) over %s at %s", p.Rhythm, p.PulseCount, p.Duration, p.BodyLocation)),
	}
	if p.EmotionTag != "" {
		parts = append(parts, s.emotion.Render("feeling "+p.EmotionTag))
	}
	if p.Description != "" {
		parts = append(parts, s.detail.Render(p.Description))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func patternLine(p domain.FeedbackPattern, s styles) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("intensity:"),
		" ",
		renderIntensityBar(p.Intensity, domain.DefaultIntensityRange, barWidth, s),
		" ",
		lipgloss.NewStyle().Foreground(intensityColor(p.Intensity)).Render(fmt.Sprintf("%.1f", p.Intensity)),
	)
}

func renderIntensityBar(intensity float64, bounds domain.IntensityRange, width int, s styles) string {
	if width <= 0 || bounds.Max <= bounds.Min {
		return ""
	}

	fraction := (bounds.Clamp(intensity) - bounds.Min) / (bounds.Max - bounds.Min)
	filled := int(math.Round(float64(width) * fraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

// intensityColor runs from a calm green to an alarm red across 0..10.
func intensityColor(intensity float64) lipgloss.Color {
	switch {
	case intensity >= 8:
		return lipgloss.Color("203")
	case intensity >= 5:
		return lipgloss.Color("215")
	case intensity >= 3:
		return lipgloss.Color("186")
	default:
		return lipgloss.Color("114")
	}
}

func domainLabels(domains []domain.DomainID) string {
	labels := make([]string, 0, len(domains))
	for _, d := range domains {
		labels = append(labels, d.Label())
	}
	return strings.Join(labels, " + ")
}

func memberCount(members, capacity int) string {
	if capacity > 0 {
		return fmt.Sprintf("%d/%d", members, capacity)
	}
	return fmt.Sprintf("%d", members)
}

func joinWindowLabel(snap application.SessionSnapshot, s styles) string {
	if snap.JoinWindowOpen {
		return " " + s.session.Render("[joining open]")
	}
	return ""
}

func formatRelative(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	clock := at.Format("15:04")
	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.Date()
	if yearA != yearB || monthA != monthB || dayA != dayB {
		clock = at.Format("15:04 on 02 Jan")
	}

	if !at.After(now) {
		return fmt.Sprintf("%s ago (%s)", humanDuration(now.Sub(at)), clock)
	}
	return fmt.Sprintf("in %s (%s)", humanDuration(at.Sub(now)), clock)
}

func formatAge(at, now time.Time) string {
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}
	return humanDuration(now.Sub(at)) + " ago"
}

func humanDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	switch {
	case d < time.Minute:
		return plural(int(d.Seconds()), "second")
	case d < time.Hour:
		return plural(int(math.Round(d.Minutes())), "minute")
	case d < 24*time.Hour:
		return plural(int(math.Round(d.Hours())), "hour")
	default:
		return plural(int(math.Round(d.Hours()/24)), "day")
	}
}
