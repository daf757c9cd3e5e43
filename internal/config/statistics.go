package config

// StatisticsConfig configures the rule statistics reports.
type StatisticsConfig struct {
	// TopRulesLimit caps the ranking returned by the top-rules report.
	TopRulesLimit int `envconfig:"TOP_RULES_LIMIT" default:"10" validate:"min=1,max=1000"`
}
