package eio

import "github.com/eio-go/eio/errs"

// Error is the error type returned throughout this package and sio.
type Error = errs.Error

// Kind classifies an Error; see errs.Kind.
type Kind = errs.Kind

const (
	InvalidPacket               = errs.InvalidPacket
	IncompletePacket            = errs.IncompletePacket
	InvalidAttachmentPacketType = errs.InvalidAttachmentPacketType
	IllegalActionBeforeOpen     = errs.IllegalActionBeforeOpen
	Transport                   = errs.Transport
	Serde                       = errs.Serde
)
