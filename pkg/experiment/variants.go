package experiment

import (
	"fmt"
	"sort"
	"strings"

	"igfeedprobe/pkg/config"
	"igfeedprobe/pkg/instagram"
)

// Result keys for the fixed steps of a run
const (
	BaselineKey          = "baseline"
	FollowingEndpointKey = "following_endpoint"
	UserProfileKey       = "user_profile"
)

// Variant is one set of timeline overrides to compare against the baseline
type Variant struct {
	Key    string                   `json:"key"`
	Label  string                   `json:"label"`
	Params instagram.TimelineParams `json:"-"`
}

// DefaultVariants returns the parameter combinations tried on every run
func DefaultVariants() []Variant {
	return []Variant{
		{
			Key:    "feed_view_mode",
			Label:  "feed_view_mode='following'",
			Params: instagram.TimelineParams{FeedViewMode: "following"},
		},
		{
			Key:    "timeline_type",
			Label:  "timeline_type='following'",
			Params: instagram.TimelineParams{TimelineType: "following"},
		},
		{
			Key:    "variant",
			Label:  "variant='following'",
			Params: instagram.TimelineParams{Variant: "following"},
		},
		{
			Key:    "is_following_only",
			Label:  "is_following_only='1'",
			Params: instagram.TimelineParams{IsFollowingOnly: "1"},
		},
		{
			Key:    "feed_type",
			Label:  "feed_type='following'",
			Params: instagram.TimelineParams{FeedType: "following"},
		},
		{
			Key:   "combined",
			Label: "Combined Parameters",
			Params: instagram.TimelineParams{
				FeedViewMode:    "following",
				TimelineType:    "following",
				IsFollowingOnly: "1",
			},
		},
	}
}

// VariantsFromConfig converts configured variants. A missing label is derived
// from the parameters.
func VariantsFromConfig(cfgs []config.VariantConfig) []Variant {
	variants := make([]Variant, 0, len(cfgs))
	for _, vc := range cfgs {
		label := vc.Label
		if label == "" {
			label = describeParams(vc.Params)
		}
		variants = append(variants, Variant{
			Key:    vc.Key,
			Label:  label,
			Params: instagram.TimelineParamsFromMap(vc.Params),
		})
	}
	return variants
}

// Configured returns the built-in variants followed by the configured ones
func Configured(cfgs []config.VariantConfig) []Variant {
	return mergeVariants(DefaultVariants(), VariantsFromConfig(cfgs))
}

// mergeVariants appends extra to base; an extra variant with an existing key
// replaces the earlier one in place
func mergeVariants(base, extra []Variant) []Variant {
	out := append([]Variant(nil), base...)
	index := make(map[string]int, len(out))
	for i, v := range out {
		index[v.Key] = i
	}
	for _, v := range extra {
		if i, ok := index[v.Key]; ok {
			out[i] = v
			continue
		}
		index[v.Key] = len(out)
		out = append(out, v)
	}
	return out
}

func describeParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s='%s'", k, params[k]))
	}
	return strings.Join(parts, ", ")
}
