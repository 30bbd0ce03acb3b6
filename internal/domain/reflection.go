package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type ReflectionCircle struct {
	ID        CircleID
	SessionID SessionID
	Eligible  []ParticipantID
	OpenedAt  time.Time
	ClosedAt  time.Time
}

func (c ReflectionCircle) Closed() bool {
	return !c.ClosedAt.IsZero()
}

func (c ReflectionCircle) IsEligible(id ParticipantID) bool {
	for _, eligible := range c.Eligible {
		if eligible == id {
			return true
		}
	}
	return false
}

type ReflectionEntry struct {
	ParticipantID ParticipantID
	Content       string
	EmotionTag    string
	Insights      []string
	ActionIdeas   []string
	SubmittedAt   time.Time
}

func (e ReflectionEntry) Validate() error {
	if strings.TrimSpace(string(e.ParticipantID)) == "" {
		return fmt.Errorf("participant id is required")
	}
	if strings.TrimSpace(e.Content) == "" && strings.TrimSpace(e.EmotionTag) == "" &&
		len(e.Insights) == 0 && len(e.ActionIdeas) == 0 {
		return fmt.Errorf("reflection is empty")
	}
	return nil
}

// Normalize trims free text and drops blank list items.
func (e ReflectionEntry) Normalize() ReflectionEntry {
	e.Content = strings.TrimSpace(e.Content)
	e.EmotionTag = strings.ToLower(strings.TrimSpace(e.EmotionTag))
	e.Insights = compactStrings(e.Insights)
	e.ActionIdeas = compactStrings(e.ActionIdeas)
	return e
}

func compactStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ReflectionSummary struct {
	Entries         int
	ActionIdeas     int
	DominantEmotion string
	AllReflected    bool
}

// Summarize picks the most common emotion tag; ties resolve alphabetically.
func Summarize(circle ReflectionCircle, entries []ReflectionEntry) ReflectionSummary {
	counts := map[string]int{}
	reflected := map[ParticipantID]struct{}{}
	summary := ReflectionSummary{Entries: len(entries)}

	for _, entry := range entries {
		summary.ActionIdeas += len(entry.ActionIdeas)
		reflected[entry.ParticipantID] = struct{}{}
		if entry.EmotionTag != "" {
			counts[entry.EmotionTag]++
		}
	}

	emotions := make([]string, 0, len(counts))
	for emotion := range counts {
		emotions = append(emotions, emotion)
	}
	sort.Slice(emotions, func(i, j int) bool {
		if counts[emotions[i]] == counts[emotions[j]] {
			return emotions[i] < emotions[j]
		}
		return counts[emotions[i]] > counts[emotions[j]]
	})
	if len(emotions) > 0 {
		summary.DominantEmotion = emotions[0]
	}

	summary.AllReflected = len(circle.Eligible) > 0
	for _, id := range circle.Eligible {
		if _, ok := reflected[id]; !ok {
			summary.AllReflected = false
			break
		}
	}

	return summary
}

func (s ReflectionSummary) String() string {
	if s.Entries == 0 {
		return "No reflections shared yet."
	}
	emotion := s.DominantEmotion
	if emotion == "" {
		emotion = "varied"
	}
	return fmt.Sprintf("The community shared %d reflections, expressing primarily %s feelings about this experience.", s.Entries, emotion)
}
