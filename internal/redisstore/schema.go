package redisstore

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so that
// several papernet ledgers can share one Redis server.
//
// Key pattern: papernet:{instance_name}:state:{ledger_key}
// Index pattern: papernet:{instance_name}:state_index (ZSET, all scores 0)
// Channel pattern: papernet:{instance_name}:paper_events

// StateKey returns the Redis key holding the value of ledgerKey.
func StateKey(instanceName, ledgerKey string) string {
	return fmt.Sprintf("papernet:%s:state:%s", instanceName, ledgerKey)
}

// StateIndexKey returns the sorted set listing every ledger key of the
// instance. Members share score 0 so ZRANGEBYLEX orders them by raw bytes.
func StateIndexKey(instanceName string) string {
	return fmt.Sprintf("papernet:%s:state_index", instanceName)
}

// PaperEventsChannel returns the Pub/Sub channel name for paper events.
func PaperEventsChannel(instanceName string) string {
	return fmt.Sprintf("papernet:%s:paper_events", instanceName)
}
