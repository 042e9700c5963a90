package handlers

import "net/http"

func Register(mux *http.ServeMux, bookings *BookingHandler, avail *AvailabilityHandler) {
	mux.HandleFunc("/api/v1/bookings/validate", bookings.Validate)
	mux.HandleFunc("/api/v1/appointments", bookings.Appointments)
	mux.HandleFunc("/api/v1/appointments/cancel", bookings.Cancel)
	mux.HandleFunc("/api/v1/appointments/recurring", bookings.CreateRecurring)
	mux.HandleFunc("/api/v1/availability/today", avail.Today)
	mux.HandleFunc("/api/v1/availability/slots", avail.Slots)
}
