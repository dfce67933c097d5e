package simdeck

import "context"

// SystemStatus is the outcome of the diagnostic probes.
type SystemStatus struct {
	Server   string `json:"server"`
	Engine   string `json:"engine"`
	Database string `json:"database"`
	DemoMode bool   `json:"demo_mode"`
	Err      error  `json:"-"`
}

// Healthy reports whether every probe succeeded.
func (s SystemStatus) Healthy() bool {
	return s.Err == nil && !s.DemoMode
}

// ProbeSystem checks the server first and the database only when the
// server answered.
func ProbeSystem(ctx context.Context, hc HealthChecker, baseURL string) SystemStatus {
	if err := hc.Health(ctx, baseURL); err != nil {
		return SystemStatus{
			Server:   "Disconnected",
			Engine:   "Error",
			Database: "No connection",
			DemoMode: true,
			Err:      err,
		}
	}

	st := SystemStatus{Server: "Active", Engine: "Operational", Database: "Connected"}
	if err := hc.TestDB(ctx, baseURL); err != nil {
		st.Database = "Error"
		st.Err = err
	}
	return st
}
