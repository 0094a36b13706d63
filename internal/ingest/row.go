package ingest

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"vaxcli/internal/vaccination"
)

// Column names of the observation table
const (
	ColOrigin     = "origin"
	ColDataDate   = "data_date"
	ColRealDate   = "real_date"
	ColPeriod     = "period"
	ColDose       = "dose"
	ColGroup      = "group"
	ColLocation   = "location"
	ColVaccinated = "vaccinated"
)

// Columns lists the table columns in file order. origin is optional on
// input.
var Columns = []string{ColOrigin, ColDataDate, ColRealDate, ColPeriod, ColDose, ColGroup, ColLocation, ColVaccinated}

// Row is one raw table row before conversion
type Row struct {
	Origin     string `csv:"origin" validate:"omitempty,oneof=report"`
	DataDate   string `csv:"data_date" validate:"required,datetime=2006-01-02"`
	RealDate   string `csv:"real_date" validate:"required,datetime=2006-01-02"`
	Period     string `csv:"period" validate:"required,oneof=daily weekly"`
	Dose       string `csv:"dose" validate:"omitempty,oneof=all dose_1 dose_2"`
	Group      string `csv:"group" validate:"omitempty,max=64"`
	Location   string `csv:"location" validate:"omitempty,max=64"`
	Vaccinated string `csv:"vaccinated" validate:"required,numeric"`
}

// ErrPredictionInput rejects forecast rows fed back as input
var ErrPredictionInput = errors.New("prediction rows are not accepted as input")

func newRowValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("csv")
	})
	return v
}

// normalize trims cells and lower-cases the enumerated columns
func (r Row) normalize() Row {
	r.Origin = strings.ToLower(strings.TrimSpace(r.Origin))
	r.DataDate = strings.TrimSpace(r.DataDate)
	r.RealDate = strings.TrimSpace(r.RealDate)
	r.Period = strings.ToLower(strings.TrimSpace(r.Period))
	r.Dose = strings.ToLower(strings.TrimSpace(r.Dose))
	r.Group = strings.TrimSpace(r.Group)
	r.Location = strings.TrimSpace(r.Location)
	r.Vaccinated = strings.TrimSpace(r.Vaccinated)
	return r
}

// validate checks r against its tags and returns a readable error
func (r Row) validate(v *validator.Validate) error {
	if r.Origin == string(vaccination.OriginPrediction) {
		return ErrPredictionInput
	}

	err := v.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s %q is not a YYYY-MM-DD date", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s %q must be one of [%s]", fe.Field(), fe.Value(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s %q is not a number", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// observation converts a validated row
func (r Row) observation() (vaccination.Vaccinated, error) {
	dataDate, err := vaccination.ParseDate(r.DataDate)
	if err != nil {
		return vaccination.Vaccinated{}, err
	}
	realDate, err := vaccination.ParseDate(r.RealDate)
	if err != nil {
		return vaccination.Vaccinated{}, err
	}
	count, err := strconv.ParseFloat(r.Vaccinated, 64)
	if err != nil {
		return vaccination.Vaccinated{}, fmt.Errorf("vaccinated: %w", err)
	}
	if count < 0 {
		return vaccination.Vaccinated{}, fmt.Errorf("vaccinated %g is negative", count)
	}

	return vaccination.Vaccinated{
		Source: vaccination.Source{
			Origin:   vaccination.OriginReport,
			DataDate: dataDate,
			RealDate: realDate,
			Period:   vaccination.Period(r.Period),
		},
		Count: count,
		Slice: vaccination.Slice{
			Dose:     vaccination.ParseMember(r.Dose),
			Group:    vaccination.ParseMember(r.Group),
			Location: vaccination.ParseMember(r.Location),
		},
	}, nil
}
