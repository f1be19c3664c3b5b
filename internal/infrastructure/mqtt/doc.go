// Package mqtt provides MQTT broker connectivity for BrewControl.
//
// It wraps the Eclipse Paho client with the patterns the controller
// needs: connection management with Last Will and Testament, automatic
// reconnection with subscription restoration, and a consistent topic
// scheme.
//
// # Topic Scheme
//
//	brewcontrol/system/status          controller online/offline (retained, LWT)
//	brewcontrol/mashing/state/{rest}   rest lifecycle transitions (retained)
//	brewcontrol/mashing/temperature    mash temperature samples
//	brewcontrol/mashing/session        session start/end events
//	brewcontrol/command/{name}         remote commands (start, continue, terminate)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	client.Subscribe(topics.AllCommands(), 1, handleCommand)
package mqtt
