package handlers

import (
	"github.com/stitchlab/atelier/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespListInvoices wraps ListInvoicesResponse in the standard envelope.
type RespListInvoices struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ListInvoicesResponse     `json:"data"`
}
