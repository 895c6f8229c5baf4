// Package main provides thumbctl, a command line client for the focus
// thumbnailer.
//
// # Commands
//
//	thumbctl enqueue --src photo.jpg --width 300 --height 300 [--dst-dir thumbs_cache] [--ext .webp]
//	thumbctl health
//	thumbctl hash-token
//
// enqueue derives the thumbnail id as the MD5 of
// "<canonical source path>|<mtime seconds>|<width>x<height>" and writes the
// thumbnail to <dst-dir>/<id><ext>. An existing thumbnail is reported without
// contacting the server. With --name and --link-dir a readable symlink
// <link-dir>/<slug>_<id prefix><ext> is created once the thumbnail exists.
//
// hash-token prints a bcrypt hash for the server's ENQUEUE_TOKEN_HASH.
//
// # Environment
//
//	THUMBCTL_TOKEN  bearer token used when --token is not given
package main
