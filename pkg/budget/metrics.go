package budget

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var renderCap = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "pokedex_render_budget_cap",
		Help: "Current adaptive render budget",
	},
)
