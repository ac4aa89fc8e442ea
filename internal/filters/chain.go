package filters

// Request bundles the parameters of every filter stage. Nil sections are
// skipped; the stages always run in the fixed chain order.
type Request struct {
	Location     *LocationParams    `json:"location,omitempty"`
	Demographics *DemographicParams `json:"demographics,omitempty"`
	Environment  *EnvironmentParams `json:"environment,omitempty"`
	Time         *TimeParams        `json:"time,omitempty"`
	Thresholds   *ThresholdParams   `json:"thresholds,omitempty"`
	Quality      *QualityParams     `json:"quality,omitempty"`
}

// ApplyChain runs the full filter chain over the current view. The first
// invalid stage stops the chain; stages already applied keep their effect.
func (m *Manager) ApplyChain(req Request) error {
	if req.Location != nil {
		if err := m.ApplyLocation(*req.Location); err != nil {
			return err
		}
	}
	if req.Demographics != nil {
		if err := m.ApplyDemographics(*req.Demographics); err != nil {
			return err
		}
	}
	if req.Environment != nil {
		if err := m.ApplyEnvironment(*req.Environment); err != nil {
			return err
		}
	}
	if req.Time != nil {
		if err := m.ApplyTimeRange(*req.Time); err != nil {
			return err
		}
	}
	if req.Thresholds != nil {
		if err := m.ApplyThresholds(*req.Thresholds); err != nil {
			return err
		}
	}
	if req.Quality != nil {
		if err := m.ApplyQuality(*req.Quality); err != nil {
			return err
		}
	}
	return nil
}
