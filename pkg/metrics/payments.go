package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records payment processing outcomes and inventory advisories.
type PaymentMetrics struct {
	callbackDuration   *prometheus.HistogramVec
	callbackOutcome    *prometheus.CounterVec
	walletPayOutcome   *prometheus.CounterVec
	settlementReleased prometheus.Counter
	settlementSkipped  *prometheus.CounterVec
	stockOverdraft     prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	callbackDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_callback_duration_seconds",
		Help:    "Duration of gateway callback processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	callbackOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callback_total",
		Help: "Gateway callbacks processed, by channel and outcome.",
	}, []string{"channel", "outcome"})
	walletPayOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_pay_total",
		Help: "Wallet payment attempts by outcome.",
	}, []string{"outcome"})
	settlementReleased := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_released_total",
		Help: "Settlements released to seller wallets.",
	})
	settlementSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_skipped_total",
		Help: "Settlement releases skipped, by reason.",
	}, []string{"reason"})
	stockOverdraft := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_overdraft_total",
		Help: "Stock deductions that drove a warehouse balance negative.",
	})
	reg.MustRegister(callbackDuration, callbackOutcome, walletPayOutcome, settlementReleased, settlementSkipped, stockOverdraft)
	return &PaymentMetrics{
		callbackDuration:   callbackDuration,
		callbackOutcome:    callbackOutcome,
		walletPayOutcome:   walletPayOutcome,
		settlementReleased: settlementReleased,
		settlementSkipped:  settlementSkipped,
		stockOverdraft:     stockOverdraft,
	}
}

// ObserveCallback records one processed gateway callback.
func (p *PaymentMetrics) ObserveCallback(channel, outcome string, duration time.Duration) {
	if p == nil || p.callbackDuration == nil {
		return
	}
	p.callbackDuration.WithLabelValues(normalizeLabel(channel)).Observe(duration.Seconds())
	p.callbackOutcome.WithLabelValues(normalizeLabel(channel), normalizeLabel(outcome)).Inc()
}

// IncWalletPay increments the wallet payment counter for the given outcome.
func (p *PaymentMetrics) IncWalletPay(outcome string) {
	if p == nil || p.walletPayOutcome == nil {
		return
	}
	p.walletPayOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSettlementReleased increments the released settlement counter.
func (p *PaymentMetrics) IncSettlementReleased() {
	if p == nil || p.settlementReleased == nil {
		return
	}
	p.settlementReleased.Inc()
}

// IncSettlementSkipped increments the skipped settlement counter for a reason.
func (p *PaymentMetrics) IncSettlementSkipped(reason string) {
	if p == nil || p.settlementSkipped == nil {
		return
	}
	p.settlementSkipped.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncStockOverdraft increments the overdraft advisory counter.
func (p *PaymentMetrics) IncStockOverdraft() {
	if p == nil || p.stockOverdraft == nil {
		return
	}
	p.stockOverdraft.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
