package exports

import (
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetClaim struct {
	CampaignID string `parquet:"name=campaign_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Claimant   string `parquet:"name=claimant, type=BYTE_ARRAY, convertedtype=UTF8"`
	RewardKind string `parquet:"name=reward_kind, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount     string `parquet:"name=amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	Fee        string `parquet:"name=fee, type=BYTE_ARRAY, convertedtype=UTF8"`
	TokenID    string `parquet:"name=token_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ClaimedAt  string `parquet:"name=claimed_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ClaimsParquet writes the supplied claims to path as a Snappy-compressed
// Parquet file.
func ClaimsParquet(path string, rows []*ClaimRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("exports: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetClaim), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("exports: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if row == nil {
			continue
		}
		record := &parquetClaim{
			CampaignID: row.CampaignID,
			Claimant:   row.Claimant,
			RewardKind: row.RewardKind,
			Amount:     row.amountString(),
			Fee:        row.feeString(),
			TokenID:    row.TokenID,
			ClaimedAt:  row.ClaimedAt.UTC().Format(time.RFC3339),
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("exports: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("exports: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("exports: close parquet file: %w", err)
	}
	return nil
}
