package sqlinline

const QInsertImageRequest = `--sql f7a21d59-8c36-4e04-b9d7-2e61f0c5a483
insert into image_requests (job_local_id, params, created_at)
values ($1, $2::jsonb, $3);
`

const QSelectImageRequestByJob = `--sql 2c95b7e1-4d08-4f63-a1b9-8d37c62e50fa
select params, created_at
from image_requests
where job_local_id = $1;
`
