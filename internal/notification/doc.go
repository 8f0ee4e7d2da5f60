// Package notification delivers interview notifications to the notification
// service. Delivery runs on a bounded background dispatcher so callers never
// wait on, or observe failures of, the outbound request.
package notification
