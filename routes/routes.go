package routes

import (
	"tirtha/auth"
	"tirtha/bookings"
	"tirtha/checkin"
	"tirtha/dispatch"
	"tirtha/live"
	"tirtha/middleware"
	"tirtha/ratelim"
	"tirtha/slots"
	"tirtha/sos"
	"tirtha/utils"
	"tirtha/zones"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router) {
	router.POST("/api/auth/register", ratelim.RateLimit(auth.Register))
	router.POST("/api/auth/login", ratelim.RateLimit(auth.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.Logout))
	router.POST("/api/auth/refresh", ratelim.RateLimit(auth.RefreshToken))
}

func AddSlotRoutes(router *httprouter.Router) {
	router.POST("/api/slots", middleware.Authenticate(slots.CreateSlot))
	router.GET("/api/slots", slots.ListSlots)
	router.GET("/api/slots/:id", slots.GetSlot)
	router.POST("/api/slots/:id/lock", middleware.Authenticate(slots.LockSlot))
	router.POST("/api/slots/:id/unlock", middleware.Authenticate(slots.UnlockSlot))
	router.POST("/api/slots-lock-low", middleware.Authenticate(slots.LockLowAvailabilityHandler))
}

func AddBookingRoutes(router *httprouter.Router) {
	router.POST("/api/bookings", ratelim.RateLimit(bookings.CreateBooking))
	router.GET("/api/bookings", middleware.Authenticate(bookings.ListBookings))
	router.GET("/api/bookings/:id", bookings.GetBooking)
	router.GET("/api/bookings/:id/pass", ratelim.RateLimit(bookings.PrintPass))
	router.POST("/api/bookings/:id/cancel", middleware.Authenticate(bookings.CancelBooking))
	router.POST("/api/bookings-expire", middleware.Authenticate(bookings.ExpireBookings))
}

func AddCheckinRoutes(router *httprouter.Router) {
	router.POST("/api/checkin", middleware.Authenticate(checkin.Scan))
}

func AddSOSRoutes(router *httprouter.Router) {
	// reporting is open: an emergency must not bounce on a missing token
	router.POST("/api/sos", sos.ReportHandler)
	router.GET("/api/sos/pending", middleware.Authenticate(sos.ListPendingHandler))
}

func AddDispatchRoutes(router *httprouter.Router) {
	router.POST("/api/resources", middleware.Authenticate(dispatch.CreateResource))
	router.GET("/api/resources/available", middleware.Authenticate(dispatch.ListAvailableHandler))
	router.POST("/api/resources/:id/offline", middleware.Authenticate(dispatch.OfflineHandler))
	router.POST("/api/resources/:id/available", middleware.Authenticate(dispatch.AvailableHandler))
	router.POST("/api/dispatch/assign", middleware.Authenticate(dispatch.AssignHandler))
	router.POST("/api/incidents/:id/resolve", middleware.Authenticate(dispatch.ResolveHandler))
}

func AddZoneRoutes(router *httprouter.Router) {
	router.POST("/api/zones", middleware.Authenticate(zones.CreateZone))
	router.GET("/api/zones", zones.ListZones)
	router.GET("/api/zones/:id", zones.GetZone)
	router.POST("/api/zones/:id/count", middleware.Authenticate(zones.UpdateCount))
}

func AddUtilityRoutes(router *httprouter.Router) {
	router.GET("/api/csrf", utils.CSRF)
	router.GET("/ws/:topic", live.HandleWS)
}
