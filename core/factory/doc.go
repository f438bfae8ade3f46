// Package factory builds modules named in configuration. A module is a type
// name plus raw settings; the factory registered under that name decodes the
// settings with Decode and returns the implementation.
//
// The metrics sinks listed under metrics.sinks are built this way:
//
//	metrics:
//	  sinks:
//	    - type: influx
//	      conf: {url: "http://influx:8086", org: plant, bucket: saltplan}
package factory
