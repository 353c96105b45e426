package pypiproject

type Project struct {
	Info Info `json:"info"`
}

type Info struct {
	Version *string `json:"version"`
}
