// Package ingest reads vaccination observation tables from CSV and XLSX
// files. Both formats carry a header row with the columns
//
//	origin,data_date,real_date,period,dose,group,location,vaccinated
//
// where origin is optional and defaults to report. An empty or "all"
// dimension value is the wildcard. Rows are validated before conversion and
// the first invalid row fails the whole load with its row number.
package ingest
