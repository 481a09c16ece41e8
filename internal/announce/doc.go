// Package announce publishes discovered WeMo devices to an MQTT broker.
//
// Each device is published retained to "<prefix>/<MAC>" as JSON so late
// subscribers see the last known state immediately. The publisher also
// maintains "<prefix>/status" ("online", or "offline" via the broker's
// last-will when the connection drops) and can optionally emit Home
// Assistant MQTT discovery configs.
//
//	pub, err := announce.NewMQTTPublisher(announce.Config{
//	    Broker:      "tcp://localhost:1883",
//	    TopicPrefix: "wemo",
//	})
//	if err != nil {
//	    return err
//	}
//	if err := pub.Connect(ctx); err != nil {
//	    return err
//	}
//	defer pub.Close()
//	err = pub.Publish(ctx, devices)
package announce
