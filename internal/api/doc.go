// Package api exposes the curation engine over HTTP: image submission,
// marking, viewport updates, strategy switching and event log inspection.
// Handlers validate input, delegate to the service layer and translate
// outcomes into JSON responses; they hold no curation logic of their own.
package api
