package notification

// Parameter names used by the payment gateway's instant notification
// service (INS).
const (
	ParamReferenceNumber = "REFNO"
	ParamOrderNumber     = "ORDERNO"
	ParamStatus          = "ORDERSTATUS"
	ParamAmount          = "IPN_TOTALGENERAL"
	ParamPayMethod       = "PAYMETHOD"
	ParamMerchantOrderID = "REFNOEXT"
	ParamHash            = "HASH"
)

// Fields is the narrow typed view of a notification payload. It is extracted
// once at the top of the webhook flow so downstream logic never reads raw
// string keys.
type Fields struct {
	ReferenceNumber string
	OrderNumber     string
	Status          string
	Amount          string
	PayMethod       string
	// MerchantOrderID is our invoice id, echoed back from the buy link's
	// order-ext-ref parameter.
	MerchantOrderID string
	Hash            string
}

func ExtractFields(params map[string]string) Fields {
	return Fields{
		ReferenceNumber: params[ParamReferenceNumber],
		OrderNumber:     params[ParamOrderNumber],
		Status:          params[ParamStatus],
		Amount:          params[ParamAmount],
		PayMethod:       params[ParamPayMethod],
		MerchantOrderID: params[ParamMerchantOrderID],
		Hash:            params[ParamHash],
	}
}
