package bench

import (
	"fmt"
	"time"
)

// AlertRule is a single threshold check evaluated against a SuiteReport or
// LoadReport after a run completes.
type AlertRule struct {
	Name      string
	Threshold float64
	// Evaluate receives the metric value being checked (e.g. recall,
	// p95 latency in ms) and returns true if the rule is violated.
	Evaluate func(value float64) bool
}

// Alert describes a single triggered rule.
type Alert struct {
	Rule    string
	Value   float64
	Message string
}

// AlertManager evaluates a fixed set of rules against benchmark results and
// accumulates the alerts they raise.
type AlertManager struct {
	rules []AlertRule
}

// NewAlertManager returns a manager with the spec's default thresholds:
// recall below 0.7, mean precision below 0.5, or p95 latency above 500ms.
func NewAlertManager() *AlertManager {
	return &AlertManager{
		rules: []AlertRule{
			{
				Name:      "recall_below_threshold",
				Threshold: 0.7,
				Evaluate:  func(v float64) bool { return v < 0.7 },
			},
			{
				Name:      "precision_below_threshold",
				Threshold: 0.5,
				Evaluate:  func(v float64) bool { return v < 0.5 },
			},
			{
				Name:      "p95_latency_above_threshold_ms",
				Threshold: 500,
				Evaluate:  func(v float64) bool { return v > 500 },
			},
		},
	}
}

// AddRule appends a rule; it does not replace a default of the same name.
// EvaluateSuite only evaluates rules named recall_below_threshold,
// precision_below_threshold or p95_latency_above_threshold_ms, and
// EvaluateLoad only the p95 latency name; a rule with any other name is
// never evaluated.
func (m *AlertManager) AddRule(rule AlertRule) {
	m.rules = append(m.rules, rule)
}

// EvaluateSuite checks a SuiteReport against the recall/precision/latency
// rules and returns every violated rule as an Alert.
func (m *AlertManager) EvaluateSuite(report *SuiteReport) []Alert {
	var alerts []Alert
	for _, rule := range m.rules {
		var value float64
		switch rule.Name {
		case "recall_below_threshold":
			value = report.MeanRecall
		case "precision_below_threshold":
			value = report.MeanPrecision
		case "p95_latency_above_threshold_ms":
			value = float64(report.Latencies.P95) / float64(time.Millisecond)
		default:
			continue
		}
		if rule.Evaluate(value) {
			alerts = append(alerts, Alert{
				Rule:  rule.Name,
				Value: value,
				Message: fmt.Sprintf("%s: value=%.3f threshold=%.3f", rule.Name, value, rule.Threshold),
			})
		}
	}
	return alerts
}

// EvaluateLoad checks a LoadReport's p95 latency and error rate.
func (m *AlertManager) EvaluateLoad(report *LoadReport) []Alert {
	var alerts []Alert
	for _, rule := range m.rules {
		if rule.Name != "p95_latency_above_threshold_ms" {
			continue
		}
		value := float64(report.Latencies.P95) / float64(time.Millisecond)
		if rule.Evaluate(value) {
			alerts = append(alerts, Alert{
				Rule:  rule.Name,
				Value: value,
				Message: fmt.Sprintf("%s: value=%.3f threshold=%.3f", rule.Name, value, rule.Threshold),
			})
		}
	}
	if report.TotalRequests > 0 {
		errRate := float64(report.ErrorCount) / float64(report.TotalRequests)
		if errRate > 0.01 {
			alerts = append(alerts, Alert{
				Rule:    "error_rate_above_threshold",
				Value:   errRate,
				Message: fmt.Sprintf("error_rate_above_threshold: value=%.3f threshold=0.010", errRate),
			})
		}
	}
	return alerts
}
