// Package port implements named one-directional message conduits between the
// HTTP layer and the engine. An Inbound port queues payloads for the engine;
// an Outbound port broadcasts engine output to whoever is subscribed at the
// moment of publication. Neither direction carries correlation data in the
// payload; each port only numbers the messages that pass through it.
package port
