package contract

// HatchingInfo is the decoded hatching-density contract for one page.
type HatchingInfo struct {
	DensityPercent float64 `json:"density_percent"`
	Assessment     string  `json:"assessment,omitempty"`
}

// DecodeHatching parses a hatching-density response. Returns nil on parse or
// validation failure.
func DecodeHatching(raw string) *HatchingInfo {
	payload := Parse(raw)
	if payload == nil || !validates(hatchingSchema, payload) {
		return nil
	}
	density, ok := FloatField(payload, "density_percent")
	if !ok {
		return nil
	}
	return &HatchingInfo{
		DensityPercent: ClampPercent(density),
		Assessment:     StringField(payload, "assessment", 200),
	}
}
