package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/comfyshop/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware интернет-магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/healthz", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		if h.authLimiter != nil {
			r.Use(h.authLimiter.Middleware)
		}

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/login/google", h.GoogleLogin)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
		r.Post("/logout", h.Logout)

		r.With(h.authMiddleware.Middleware).Get("/me", h.Me)
	})

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/add", h.AddToCart)
			r.Delete("/remove/{productID}", h.RemoveFromCart)
			r.Delete("/clear", h.ClearCart)
		})

		r.Post("/payment/pay", h.Pay)
		r.Get("/orders", h.GetOrders)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireAdmin)

			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/register-token", h.RegisterAdminToken)
				r.Post("/notifications", h.SendNotification)
				r.Get("/orders", h.ListOrders)
				r.Put("/orders/{id}/status", h.UpdateOrderStatus)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.WriteError(w, http.StatusNotFound, custommiddleware.KindNotFound, "route not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.WriteError(w, http.StatusMethodNotAllowed, custommiddleware.KindMethodNotAllowed, "method not allowed")
	})

	return r
}
