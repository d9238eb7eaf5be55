// Package inventory ties the REST API and the realtime channels together.
//
// Service exposes the backend operations and the typed realtime
// subscriptions. Tracker keeps a local view of items and alerts that is
// loaded over REST and kept current by live updates:
//
//   - inventory_update payloads are merged by item id; existing items keep
//     their position and unknown ids are appended
//   - inventory_alert payloads replace the alert list
//   - Create, Update and Delete apply to the view once the backend accepts them
package inventory
