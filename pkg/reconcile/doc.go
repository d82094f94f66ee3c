// Package reconcile joins the scraped per-event result tables of each season
// with the pit-stop summaries fetched from the statistics API.
//
// A season directory holds both kinds of file:
//
//	data/2021/Bahrain_Grand_Prix.csv     result table (Driver, No., ...)
//	data/2021/race_01_pitstops.csv       pit-stop summary
//
// Results are left-joined onto the summaries on (Season, RaceNumber, car
// number); every result row survives the join exactly once. Each file read
// is recorded in a Manifest so skipped inputs stay auditable.
package reconcile
