package service

import "github.com/prometheus/client_golang/prometheus"

var (
	loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "adaayien_auth_logins_total", Help: "Login attempts by result"},
		[]string{"result"},
	)
	registrationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "adaayien_auth_registrations_total", Help: "Registrations by role and mail outcome"},
		[]string{"role", "email_sent"},
	)
	imageCleanupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "adaayien_image_cleanup_total", Help: "Remote image destroy attempts by result"},
		[]string{"result"},
	)
	cartMutationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "adaayien_cart_mutations_total", Help: "Cart mutations by operation"},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(loginTotal, registrationTotal, imageCleanupTotal, cartMutationTotal)
}
