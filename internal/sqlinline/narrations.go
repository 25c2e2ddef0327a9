package sqlinline

const QEnsureNarrationsTable = `--sql 71846eed-7698-48c6-a835-177dd2f491ad
create table if not exists narrations (
  id uuid primary key,
  story text not null,
  image_source text not null,
  status text not null,
  voice_file text,
  voice_tier text,
  character_file text,
  character_tier text,
  video_file text,
  video_tier text,
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
`

const QInsertNarration = `--sql e7446eba-18e2-46d4-b396-c950f69fafe6
insert into narrations (id, story, image_source, status, voice_file, voice_tier, character_file, character_tier)
values ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
on conflict (id) do nothing;
`

const QCompleteNarration = `--sql 4847225e-c164-417f-9ad0-24873554588a
update narrations
set status = $2,
    video_file = $3,
    video_tier = $4,
    updated_at = now()
where id = $1::uuid;
`

const QGetNarration = `--sql 0c2ce55f-88dd-44c5-821f-96064bae0a4d
select id::text, story, image_source, status,
       coalesce(voice_file, ''), coalesce(voice_tier, ''),
       coalesce(character_file, ''), coalesce(character_tier, ''),
       coalesce(video_file, ''), coalesce(video_tier, ''),
       created_at
from narrations
where id = $1::uuid;
`
