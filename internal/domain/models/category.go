package models

import "math"

// Category buckets a day's percentage price change.
type Category string

const (
	CategoryLimitUp    Category = "limit_up"
	CategoryRange7To9  Category = "range_7_9p"
	CategoryRange5To7  Category = "range_5_7p"
	CategoryRange3To5  Category = "range_3_5p"
	CategoryRange1To3  Category = "range_1_3p"
	CategoryMicroUp    Category = "micro_up"
	CategoryFlat       Category = "flat"
	CategorySmallDown  Category = "small_down"
	CategoryMediumDown Category = "medium_down"
	CategoryLargeDown  Category = "large_down"
	CategoryLimitDown  Category = "limit_down"

	// CategoryRange10To19 is never produced by Categorize. Stored tables from
	// older runs may still carry its label.
	CategoryRange10To19 Category = "range_10_19p"
)

// Categories lists every bucket Categorize can return, highest first.
var Categories = []Category{
	CategoryLimitUp,
	CategoryRange7To9,
	CategoryRange5To7,
	CategoryRange3To5,
	CategoryRange1To3,
	CategoryMicroUp,
	CategoryFlat,
	CategorySmallDown,
	CategoryMediumDown,
	CategoryLargeDown,
	CategoryLimitDown,
}

var categoryLabels = map[Category]string{
	CategoryRange1To3:   "1-3",
	CategoryRange3To5:   "3-5",
	CategoryRange5To7:   "5-7",
	CategoryRange7To9:   "7-9",
	CategoryRange10To19: "10-19",
	CategoryLimitUp:     "涨停",
}

var scenarioDescriptions = map[Category]string{
	CategoryLimitUp:     "今天涨停(涨幅>=9.5%)，明天概率情况",
	CategoryRange7To9:   "今天7-9%，明天概率情况",
	CategoryRange5To7:   "今天5-7%，明天概率情况",
	CategoryRange3To5:   "今天3-5%，明天概率情况",
	CategoryRange1To3:   "今天1-3%，明天概率情况",
	CategoryRange10To19: "今天10-19%，明天概率情况",
	CategoryMicroUp:     "今天微涨(0 ~ 1%)，明天概率情况",
	CategoryFlat:        "今天平盘(涨幅=0%)，明天概率情况",
	CategorySmallDown:   "今天小跌(-1% ~ 0)，明天概率情况",
	CategoryMediumDown:  "今天中跌(-3% ~ -1%)，明天概率情况",
	CategoryLargeDown:   "今天大跌(-5% ~ -3%)，明天概率情况",
	CategoryLimitDown:   "今天跌停(跌幅<=-5%)，明天概率情况",
}

// Categorize maps a percentage change to exactly one Category. Boundaries are
// checked top-down and the first match wins. NaN is treated as flat.
func Categorize(pct float64) Category {
	switch {
	case math.IsNaN(pct):
		return CategoryFlat
	case pct >= 9.5:
		return CategoryLimitUp
	case pct >= 7:
		return CategoryRange7To9
	case pct >= 5:
		return CategoryRange5To7
	case pct >= 3:
		return CategoryRange3To5
	case pct >= 1:
		return CategoryRange1To3
	case pct > 0:
		return CategoryMicroUp
	case pct == 0:
		return CategoryFlat
	case pct > -1:
		return CategorySmallDown
	case pct > -3:
		return CategoryMediumDown
	case pct > -5:
		return CategoryLargeDown
	default:
		return CategoryLimitDown
	}
}

// Label returns the display label used in stored tables and lookups.
// Buckets without a short label display their identifier.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Scenario returns the human-readable scenario description.
func (c Category) Scenario() string {
	if s, ok := scenarioDescriptions[c]; ok {
		return s
	}
	return "今天" + string(c) + "，明天概率情况"
}

// ParseCategoryLabel resolves a stored display label back to its Category.
func ParseCategoryLabel(label string) Category {
	for c, l := range categoryLabels {
		if l == label {
			return c
		}
	}
	return Category(label)
}
