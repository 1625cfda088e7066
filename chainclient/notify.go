package chainclient

import "fmt"

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// NTStatsChanged indicates the DAA score of the network advanced.
	NTStatsChanged NotificationType = iota

	// NTIndexerUnreachable indicates a scheduled refresh failed.
	NTIndexerUnreachable
)

// notificationTypeStrings is a map of notification types back to their constant
// names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTStatsChanged:       "NTStatsChanged",
	NTIndexerUnreachable: "NTIndexerUnreachable",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// Notification defines notification that is sent to the caller via the callback
// function provided during the call to Subscribe and consists of a notification
// type as well as associated data that depends on the type as follows:
//   - NTStatsChanged:       *model.ChainStats
//   - NTIndexerUnreachable: error
type Notification struct {
	Type NotificationType
	Data interface{}
}

// Subscribe to notifications. Registers a callback to be executed
// when various events take place.
func (c *Client) Subscribe(callback NotificationCallback) {
	c.notificationsLock.Lock()
	c.notifications = append(c.notifications, callback)
	c.notificationsLock.Unlock()
}

// sendNotification sends a notification with the passed type and data to
// every subscriber.
func (c *Client) sendNotification(typ NotificationType, data interface{}) {
	n := Notification{Type: typ, Data: data}
	c.notificationsLock.RLock()
	for _, callback := range c.notifications {
		callback(&n)
	}
	c.notificationsLock.RUnlock()
}
