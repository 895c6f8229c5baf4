/*
Package detect finds the focal face of an image.

Detectors implement a single capability, DetectBestFace, and are assembled
into a Pipeline that tries them strictly in priority order and returns the
first positive result. Adding or removing a detector is a configuration
change: the chain is described either by a YAML file (see ChainConfig) or by
a comma separated list of names.

Three detector types are available:

  - pigo: an in-process pixel intensity comparison cascade
  - sidecar: an external process speaking a length prefixed PNG/JSON protocol
  - http: a remote inference endpoint

Every configured detector is wrapped in Lazy, so model loading or process
start happens once, on first use, even if the first calls are concurrent.
*/
package detect
