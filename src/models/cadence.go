package models

// MFeedCadence stores running statistics over the summary history. Derived
// from the retained points, never persisted.
type MFeedCadence struct {
	Samples                  int     `json:"samples"`
	MeanIntervalSeconds      float64 `json:"mean_interval_seconds"`
	StdIntervalSeconds       float64 `json:"std_interval_seconds"`
	LatestIntervalSeconds    float64 `json:"latest_interval_seconds"`
	LatestIntervalZScore     float64 `json:"latest_interval_z_score"`
	VolumeAnomalyRatio       float64 `json:"volume_anomaly_ratio"`
	BreadthVolumeCorrelation float64 `json:"breadth_volume_correlation"`
}
