// Package domain models traffic accident records and the congestion features
// derived from them.
//
// # Data Source
//
// Records come from the US Accidents dataset (Kaggle, March 2023 release), a
// CSV export with one row per reported accident. Only six columns are used:
//
//	Start_Time          "2016-02-08 05:46:00" local time of the accident
//	Weather_Condition   free text label, e.g. "Light Rain", "Clear", "Fog"
//	Junction            "True" / "False", accident near a junction
//	Traffic_Signal      "True" / "False", accident near a traffic signal
//	Severity            1..4, impact on traffic (1 = short delay, 4 = long delay)
//	Visibility(mi)      decimal miles
//
// Any of these may be empty. Missing values are imputed by [Impute]:
// timestamps are carried forward from the previous row, weather defaults to
// "Clear", flags default to false and visibility to the column mean.
//
// # Congestion Labels
//
// Severity is collapsed into a three-level congestion label:
//
//	1       Low
//	2, 3    Moderate
//	4       High
//	other   Low
//
// # Time Features
//
// Hour is taken from the wall clock of the timestamp as written (no zone
// conversion). Day of week counts from Monday = 0 to Sunday = 6. Rush hour
// covers 07:00-09:59 and 16:00-18:59.
//
// # Weather Encoding
//
// Weather labels are mapped to integer ids by position in the sorted set of
// distinct labels seen during extraction. The table is persisted next to the
// cleaned data and reused unchanged by training and serving, see
// [WeatherEncoder].
//
// # Rule Cascade
//
// The prediction service does not consult the trained model. It classifies a
// request from three flags (rush hour, bad weather, junction) with
// [Classify] and samples a synthetic history with [SampleHistory].
package domain
