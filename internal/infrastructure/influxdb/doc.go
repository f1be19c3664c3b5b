// Package influxdb provides InfluxDB connectivity for BrewControl.
//
// It wraps the official influxdb-client-go v2 library and stores the
// time series produced by a mashing run:
//   - mash temperature samples
//   - heater duty-cycle decisions
//   - rest lifecycle transitions
//
// Writes are batched and non-blocking; a slow or absent series store
// never delays the control loop. The temperature curve is what the
// brewer looks at afterwards to judge how well the rig held each rest.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteTemperature(sessionID, 64.2)
package influxdb
