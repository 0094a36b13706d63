package http

import (
	"net/http"

	"vaxcli/internal/pipeline"
	"vaxcli/internal/vaccination"
)

// RecordDTO is the wire form of one observation. Dates are calendar strings.
type RecordDTO struct {
	Origin       string  `json:"origin"`
	DataDate     string  `json:"data_date"`
	RealDate     string  `json:"real_date"`
	Period       string  `json:"period"`
	Dose         string  `json:"dose"`
	Group        string  `json:"group"`
	Location     string  `json:"location"`
	Vaccinated   float64 `json:"vaccinated"`
	Extrapolated bool    `json:"extrapolated"`
	Interpolated bool    `json:"interpolated"`
}

// NewRecordDTO converts an observation to its wire form
func NewRecordDTO(v vaccination.Vaccinated) RecordDTO {
	return RecordDTO{
		Origin:       string(v.Source.Origin),
		DataDate:     v.Source.DataDate.Format(vaccination.DateLayout),
		RealDate:     v.Source.RealDate.Format(vaccination.DateLayout),
		Period:       string(v.Source.Period),
		Dose:         v.Slice.Dose.String(),
		Group:        v.Slice.Group.String(),
		Location:     v.Slice.Location.String(),
		Vaccinated:   v.Count,
		Extrapolated: v.Extrapolated,
		Interpolated: v.Interpolated,
	}
}

// SeriesResponse is the body of GET /api/series
type SeriesResponse struct {
	Count   int         `json:"count"`
	Records []RecordDTO `json:"records"`
}

// Render implements render.Renderer
func (s *SeriesResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// NewSeriesResponse builds a response from records
func NewSeriesResponse(records []vaccination.Vaccinated) *SeriesResponse {
	dtos := make([]RecordDTO, len(records))
	for i, v := range records {
		dtos[i] = NewRecordDTO(v)
	}
	return &SeriesResponse{Count: len(dtos), Records: dtos}
}

// StageDTO is the wire form of a stage report
type StageDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	RecordsIn   int     `json:"records_in"`
	RecordsOut  int     `json:"records_out"`
	Diagnostics int     `json:"diagnostics"`
	DurationMS  float64 `json:"duration_ms"`
}

// NewStageDTOs converts stage reports to their wire form
func NewStageDTOs(reports []pipeline.StageReport) []StageDTO {
	out := make([]StageDTO, len(reports))
	for i, s := range reports {
		out[i] = StageDTO{
			ID:          s.ID,
			Name:        s.Name,
			RecordsIn:   s.RecordsIn,
			RecordsOut:  s.RecordsOut,
			Diagnostics: s.Diagnostics,
			DurationMS:  float64(s.Duration.Microseconds()) / 1000,
		}
	}
	return out
}
