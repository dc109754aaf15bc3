// Package websocket is the event channel between browsers and rooms.
//
// Every upgraded connection gets a UUID identity. Frames are JSON envelopes
// of the form {"event": "...", "data": {...}} in both directions. Inbound
// frames are handed to a service.Handler on the connection's read
// goroutine; outbound messages arrive through Hub.Send, which implements
// service.Notifier.
//
// Usage:
//
//	hub := websocket.NewHub(dispatcher, logger)
//	dispatcher.SetNotifier(hub)
//	go hub.Run(ctx)
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Closing the socket counts as leaving the room.
package websocket
