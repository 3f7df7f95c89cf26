package storage

import (
	"context"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"

	"songrab/logger"
)

// MirrorFile 把已完成的输出文件上传到对象存储做镜像。
// 镜像是锦上添花：失败只记日志，绝不影响曲目本身的下载结果。
func MirrorFile(ctx context.Context, bucket, localPath string) {
	client := GetMinioClient()
	if client == nil {
		return
	}

	objectName := filepath.Base(localPath)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := client.FPutObject(ctx, bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Warn("mirror upload failed",
			logger.String("path", localPath),
			logger.ErrorField(err))
		return
	}

	logger.Info("mirror upload ok",
		logger.String("bucket", bucket),
		logger.String("object", objectName))
}
