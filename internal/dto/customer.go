package dto

// Customer is a company that owns registered products.
type Customer struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	GST      string `json:"gst"`
	Pincode  int    `json:"pincode"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Users    int    `json:"users"`
	IsActive bool   `json:"is_active"`
	Audit
}

// CreateOrEditCustomer registers or edits a customer.
type CreateOrEditCustomer struct {
	Name    string `json:"name" validate:"required,min=4,max=100" msg:"required=Required"`
	Address string `json:"address" validate:"required,min=4,max=300" msg:"required=Required Address"`
	GST     string `json:"gst" validate:"required,len=15" msg:"required=Required 15 digit gst number,len=Required 15 digit gst number"`
	Pincode int    `json:"pincode" validate:"required,min=100000,max=999999" msg:"required=Required 6 digit pincode,min=Required 6 digit pincode,max=Required 6 digit pincode"`
	Email   string `json:"email" validate:"required,email" msg:"required=Required,email=Invalid email"`
	Mobile  string `json:"mobile" validate:"required,len=10,number" msg:"required=mobile is required,len=mobile must be 10 digits,number=mobile must be a number"`
}
