package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CSVHeader is the column header of an input observations file
const CSVHeader = "origin,data_date,real_date,period,dose,group,location,vaccinated\n"

// FixtureCSV holds one slice (group A, every location) with a daily report
// on 2021-03-01 and a dose breakdown plus aggregate on 2021-03-07. A full
// default run turns it into 55 records over 5 stages.
const FixtureCSV = CSVHeader +
	"report,2021-03-01,2021-03-01,daily,dose_1,A,all,100\n" +
	"report,2021-03-07,2021-03-07,daily,dose_1,A,all,130\n" +
	"report,2021-03-07,2021-03-07,daily,dose_2,A,all,50\n" +
	"report,2021-03-07,2021-03-07,daily,all,A,all,180\n"

// InconsistentCSV carries an aggregate far above the sum of its doses
const InconsistentCSV = CSVHeader +
	"report,2021-03-07,2021-03-07,daily,dose_1,A,all,130\n" +
	"report,2021-03-07,2021-03-07,daily,dose_2,A,all,50\n" +
	"report,2021-03-07,2021-03-07,daily,all,A,all,900\n"

// WriteFile writes content to name inside a fresh temp directory and
// returns the path
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", name, err)
	}
	return path
}

// WriteCSV writes content to input.csv inside a fresh temp directory
func WriteCSV(t testing.TB, content string) string {
	t.Helper()
	return WriteFile(t, "input.csv", content)
}
