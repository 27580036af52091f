package telemetry

import (
	"github.com/hashicorp/go-metrics"
)

const bridgeMetricsPrefix = "bridge"

func UpdateBridgeDepositsReceivedCounter(cnt int) {
	metrics.IncrCounter([]string{bridgeMetricsPrefix, "deposits_received_counter"}, float32(cnt))
}

func UpdateBridgeDepositsInvalidCounter(cnt int) {
	metrics.IncrCounter([]string{bridgeMetricsPrefix, "deposits_invalid_counter"}, float32(cnt))
}

func UpdateBridgeDepositsPublishedCounter(cnt int) {
	metrics.IncrCounter([]string{bridgeMetricsPrefix, "deposits_published_counter"}, float32(cnt))
}

func UpdateBridgeMirrorsConfirmedCounter(cnt int) {
	metrics.IncrCounter([]string{bridgeMetricsPrefix, "mirrors_confirmed_counter"}, float32(cnt))
}

func UpdateBridgeMirrorsFailedCounter(cnt int) {
	metrics.IncrCounter([]string{bridgeMetricsPrefix, "mirrors_failed_counter"}, float32(cnt))
}

func UpdateBridgePendingMirrorsGauge(cnt int) {
	metrics.SetGauge([]string{bridgeMetricsPrefix, "pending_mirrors"}, float32(cnt))
}

func UpdateBridgeLastProcessedSlotGauge(slot uint64) {
	metrics.SetGauge([]string{bridgeMetricsPrefix, "last_processed_slot_high"}, float32(slot>>32))
	metrics.SetGauge([]string{bridgeMetricsPrefix, "last_processed_slot_low"}, float32(uint32(slot)))
}
