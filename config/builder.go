package config

import (
	"github.com/fnpulse/fnpulse"
)

// BuildOptions converts parsed configuration into SDK options, ready to be
// passed to [fnpulse.New].
func BuildOptions(cfg *Config) ([]fnpulse.Option, error) {
	cards, err := BuildCards(cfg)
	if err != nil {
		return nil, err
	}

	opts := []fnpulse.Option{
		fnpulse.WithPlatform(cfg.Platform.URL, cfg.Platform.DeployKey),
		fnpulse.WithDeployment(cfg.Deployment),
		fnpulse.WithCards(cards...),
		fnpulse.WithPort(cfg.Port),
		fnpulse.WithRefreshInterval(cfg.RefreshInterval.Duration()),
		fnpulse.WithMaxConcurrency(cfg.MaxConcurrency),
	}

	if cfg.Title != "" {
		opts = append(opts, fnpulse.WithTitle(cfg.Title))
	}
	if cfg.Team != "" {
		opts = append(opts, fnpulse.WithTeam(cfg.Team))
	}

	if tuning := buildTuning(cfg.Stream); tuning != (fnpulse.StreamTuning{}) {
		opts = append(opts, fnpulse.WithStreamTuning(tuning))
	}

	return opts, nil
}

// BuildCards converts parsed card definitions into SDK Card objects.
func BuildCards(cfg *Config) ([]fnpulse.Card, error) {
	cards := make([]fnpulse.Card, 0, len(cfg.Cards))
	for _, cc := range cfg.Cards {
		card, err := buildCard(cc)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// buildCard converts a single CardConfig to an SDK Card.
func buildCard(cc CardConfig) (fnpulse.Card, error) {
	var opts []fnpulse.CardOption

	if cc.Window != 0 {
		opts = append(opts, fnpulse.WithWindow(cc.Window.Duration()))
	}

	if cc.Interval != 0 {
		opts = append(opts, fnpulse.WithCardInterval(cc.Interval.Duration()))
	}

	if cc.Rows != 0 {
		opts = append(opts, fnpulse.WithTableRows(cc.Rows))
	}

	if cc.Thresholds.IsSet() {
		classifier := fnpulse.ThresholdClassifier(
			cc.Thresholds.Warn,
			cc.Thresholds.Crit,
			!cc.Thresholds.LowerIsWorse,
		)
		opts = append(opts, fnpulse.WithClassifier(classifier))
	}

	return fnpulse.NewCard(cc.Name, fnpulse.CardKind(cc.Kind), opts...)
}

// buildTuning converts the stream block to SDK stream tuning.
func buildTuning(sc StreamConfig) fnpulse.StreamTuning {
	return fnpulse.StreamTuning{
		MinRequestInterval: sc.MinRequestInterval.Duration(),
		ActiveInterval:     sc.ActiveInterval.Duration(),
		IdleInterval:       sc.IdleInterval.Duration(),
		IdleIntervalMax:    sc.IdleIntervalMax.Duration(),
		BackoffFactor:      sc.BackoffFactor,
		MaxEntries:         sc.MaxEntries,
	}
}
