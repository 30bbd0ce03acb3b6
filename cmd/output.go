package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/spf13/cobra"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRendered(cmd *cobra.Command, rendered string, err error) error {
	if err != nil {
		return fmt.Errorf("render output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

// parseIndicators reads name=value or name=value:unit pairs.
func parseIndicators(pairs []string) (map[string]domain.Measurement, error) {
	indicators := make(map[string]domain.Measurement, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("indicator %q must be name=value", pair)
		}
		raw, unit, _ := strings.Cut(raw, ":")
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("indicator %q: %w", name, err)
		}
		indicators[name] = domain.Measurement{Value: value, Unit: strings.TrimSpace(unit)}
	}
	return indicators, nil
}

// parseLocations reads canonical=personal body location pairs.
func parseLocations(pairs []string) (map[domain.BodyLocation]domain.BodyLocation, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	locations := make(map[domain.BodyLocation]domain.BodyLocation, len(pairs))
	for _, pair := range pairs {
		from, to, ok := strings.Cut(pair, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("location %q must be canonical=personal", pair)
		}
		locations[domain.BodyLocation(from)] = domain.BodyLocation(to)
	}
	return locations, nil
}

func domainIDs(values []string) []domain.DomainID {
	ids := make([]domain.DomainID, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			ids = append(ids, domain.DomainID(v))
		}
	}
	return ids
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
