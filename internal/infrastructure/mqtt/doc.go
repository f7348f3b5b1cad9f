// Package mqtt provides the broker connection for the fingerprint node.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and subscription restore
//   - Presence on {prefix}/status: online on connect, offline on Close,
//     and a Last Will and Testament for unexpected disconnects
//   - Topic names for the node's command and event surface (Topics)
//
// # Topic layout
//
//	{prefix}/set/{command}   inbound: scan, enroll, delete, empty,
//	                         name_{slot}, templates, history
//	{prefix}/mode            retained current mode
//	{prefix}/finger          one access decision per scan
//	{prefix}/templates       retained template registry
//	{prefix}/event           admin operation outcomes
//	{prefix}/history         access log query results
//	{prefix}/status          retained presence (LWT)
//	{prefix}/health          periodic health report
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.SetWildcard(), 1, handler)
package mqtt
