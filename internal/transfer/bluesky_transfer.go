package transfer

type BlueskySession struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

type BlueskyLogin struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type BlueskyBlob struct {
	Type string `json:"$type"`
	Ref  struct {
		Link string `json:"$link"`
	} `json:"ref"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
}

type BlueskyUploadResponse struct {
	Blob BlueskyBlob `json:"blob"`
}

type BlueskyByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type BlueskyFeature struct {
	Type string `json:"$type"`
	Tag  string `json:"tag"`
}

type BlueskyFacet struct {
	Index    BlueskyByteSlice `json:"index"`
	Features []BlueskyFeature `json:"features"`
}

type BlueskyImage struct {
	Alt   string      `json:"alt"`
	Image BlueskyBlob `json:"image"`
}

type BlueskyEmbed struct {
	Type   string         `json:"$type"`
	Images []BlueskyImage `json:"images"`
}

type BlueskyPostRecord struct {
	Type      string         `json:"$type"`
	Text      string         `json:"text"`
	CreatedAt string         `json:"createdAt"`
	Facets    []BlueskyFacet `json:"facets,omitempty"`
	Embed     *BlueskyEmbed  `json:"embed,omitempty"`
}

type BlueskyCreateRecord struct {
	Repo       string            `json:"repo"`
	Collection string            `json:"collection"`
	Record     BlueskyPostRecord `json:"record"`
}

type BlueskyCreateRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type BlueskyConnect struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}
