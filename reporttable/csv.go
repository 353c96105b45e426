package reporttable

import (
	"encoding/csv"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

func WriteCSV(filename string, data [][]string) (err error) {
	log.Print("WriteCSV:: Enter()")

	file, err := os.Create(filename)
	log.Printf("WriteCSV:: Creating CSV File: %s", filename)
	if err != nil {
		log.Printf("WriteCSV:: Failed to create CSV file: %v", err)
		return err
	}
	defer func(file *os.File) {
		if cerr := file.Close(); cerr != nil {
			log.Printf("WriteCSV:: Failed to close CSV. ERROR: %v", cerr)
			if err == nil {
				err = cerr
			}
		}
	}(file)

	if err := EncodeCSV(file, data); err != nil {
		return err
	}
	log.Print("WriteCSV:: Exit()")
	return nil
}

func EncodeCSV(w io.Writer, data [][]string) error {
	writer := csv.NewWriter(w)
	for _, record := range data {
		if err := writer.Write(record); err != nil {
			log.Printf("EncodeCSV:: failed to write record to CSV: %v", err)
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
