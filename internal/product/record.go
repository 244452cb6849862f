package product

// Record is one product listing as read from the input dataset. Prices
// are in the minor currency unit (fen). Zero values mean "absent" and
// get filled in by the completer before upload.
type Record struct {
	Title         string   `json:"title" parquet:"title"`
	SubTitle      string   `json:"sub_title,omitempty" parquet:"sub_title,optional"`
	Description   string   `json:"description,omitempty" parquet:"description,optional"`
	Price         int64    `json:"price,omitempty" parquet:"price,optional"`
	Stock         int      `json:"stock,omitempty" parquet:"stock,optional"`
	Images        []string `json:"images,omitempty" parquet:"images,list,optional"`
	DetailImages  []string `json:"detail_images,omitempty" parquet:"detail_images,list,optional"`
	CategoryPath  []string `json:"category_path,omitempty" parquet:"category_path,list,optional"`
	SKUs          []SKU    `json:"skus,omitempty" parquet:"skus,list,optional"`
	OutProductID  string   `json:"out_product_id,omitempty" parquet:"out_product_id,optional"`
	DeliverMethod *int     `json:"deliver_method,omitempty" parquet:"-"`
}

// SKU is one sellable variant of a record.
type SKU struct {
	Price    int64  `json:"price" parquet:"price"`
	StockNum int    `json:"stock_num" parquet:"stock_num"`
	OutSKUID string `json:"out_sku_id,omitempty" parquet:"out_sku_id,optional"`
}
